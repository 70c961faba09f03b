package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

const batchColumns = `id, code, institution_id, faculty_id, name, department, year, section, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (model.Batch, error) {
	var b model.Batch
	err := row.Scan(&b.ID, &b.Code, &b.InstitutionID, &b.FacultyID, &b.Name, &b.Department, &b.Year, &b.Section, &b.CreatedAt)
	return b, err
}

// CreateBatch inserts a batch with no students. A second batch with the same
// (code, institution) fails with a conflict error.
func (s *Store) CreateBatch(ctx context.Context, b model.Batch) (model.Batch, error) {
	b.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (code, institution_id, faculty_id, name, department, year, section, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Code, b.InstitutionID, b.FacultyID, b.Name, b.Department, b.Year, b.Section, b.CreatedAt,
	)
	if isConstraint(err, "UNIQUE") {
		return model.Batch{}, apperr.Conflict("batch %q already exists in institution %q", b.Code, b.InstitutionID)
	}
	if err != nil {
		return model.Batch{}, fmt.Errorf("insert batch: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return model.Batch{}, err
	}
	b.Students = []string{}
	return b, nil
}

// GetBatch returns the batch with the given code in an institution, with its students.
func (s *Store) GetBatch(ctx context.Context, institutionID, code string) (model.Batch, error) {
	b, err := scanBatch(s.db.QueryRowContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE institution_id = ? AND code = ?`,
		institutionID, code,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Batch{}, apperr.NotFound("batch %q not found", code)
	}
	if err != nil {
		return model.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	if b.Students, err = s.batchStudents(ctx, s.db, b.ID); err != nil {
		return model.Batch{}, err
	}
	return b, nil
}

// ListBatchesByInstitution returns every batch of an institution.
func (s *Store) ListBatchesByInstitution(ctx context.Context, institutionID string) ([]model.Batch, error) {
	return s.listBatches(ctx, `WHERE institution_id = ?`, institutionID)
}

// ListBatchesByFaculty returns the batches a faculty member is attached to.
func (s *Store) ListBatchesByFaculty(ctx context.Context, facultyID string) ([]model.Batch, error) {
	return s.listBatches(ctx, `WHERE faculty_id = ?`, facultyID)
}

func (s *Store) listBatches(ctx context.Context, where string, args ...any) ([]model.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+batchColumns+` FROM batches `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	batches := []model.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		batches = append(batches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range batches {
		if batches[i].Students, err = s.batchStudents(ctx, s.db, batches[i].ID); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) batchStudents(ctx context.Context, q querier, batchID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT student_id FROM batch_students WHERE batch_id = ? ORDER BY rowid`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch students: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AddBatchStudents set-unions studentIDs into the batch membership and copies
// the batch and faculty ids onto the matching student accounts of the batch's
// institution. Both writes commit together or not at all. Unknown student ids
// become members without a denormalized account. It returns the number of
// student accounts updated.
func (s *Store) AddBatchStudents(ctx context.Context, b model.Batch, studentIDs []string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range studentIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO batch_students (batch_id, student_id, added_at) VALUES (?, ?, ?)`,
			b.ID, id, now,
		); err != nil {
			return 0, fmt.Errorf("insert batch member: %w", err)
		}
	}

	var updated int64
	if len(studentIDs) > 0 {
		res, err := tx.ExecContext(ctx,
			`UPDATE students SET batch_id = ?, faculty_id = ?
			 WHERE institution_id = ? AND enrollment_id IN (`+placeholders(len(studentIDs))+`)`,
			stringArgs([]any{b.ID, b.FacultyID, b.InstitutionID}, studentIDs)...,
		)
		if err != nil {
			return 0, fmt.Errorf("denormalize students: %w", err)
		}
		if updated, err = res.RowsAffected(); err != nil {
			return 0, err
		}
	}

	return updated, tx.Commit()
}

// StudentsInBatches returns the distinct members of the named batches of an
// institution. Codes that do not exist contribute nothing.
func (s *Store) StudentsInBatches(ctx context.Context, institutionID string, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return []string{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT bs.student_id
		 FROM batch_students bs JOIN batches b ON b.id = bs.batch_id
		 WHERE b.institution_id = ? AND b.code IN (`+placeholders(len(codes))+`)
		 GROUP BY bs.student_id
		 ORDER BY MIN(bs.rowid)`,
		stringArgs([]any{institutionID}, codes)...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve batch members: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}
