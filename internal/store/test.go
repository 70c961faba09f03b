package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

const testColumns = `id, institution_id, type, title, status, questions_json, created_at`

func scanTest(row rowScanner) (model.Test, error) {
	var t model.Test
	var qjson string
	if err := row.Scan(&t.ID, &t.InstitutionID, &t.Type, &t.Title, &t.Status, &qjson, &t.CreatedAt); err != nil {
		return model.Test{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return model.Test{}, fmt.Errorf("decode questions of test %s: %w", t.ID, err)
	}
	return t, nil
}

// InsertTest stores a new test in draft state. Targets and submissions on t are ignored.
func (s *Store) InsertTest(ctx context.Context, t model.Test) error {
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO mcq_tests (id, institution_id, type, title, status, questions_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.InstitutionID, t.Type, t.Title, model.StatusDraft, string(qj), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}
	return nil
}

// GetTest returns a test with its targets and submissions.
func (s *Store) GetTest(ctx context.Context, id string) (model.Test, error) {
	t, err := scanTest(s.db.QueryRowContext(ctx, `SELECT `+testColumns+` FROM mcq_tests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Test{}, apperr.NotFound("test %s not found", id)
	}
	if err != nil {
		return model.Test{}, fmt.Errorf("get test: %w", err)
	}
	if err := s.fillTest(ctx, &t); err != nil {
		return model.Test{}, err
	}
	return t, nil
}

// TestInstitution returns the owning institution of a test.
func (s *Store) TestInstitution(ctx context.Context, id string) (string, error) {
	var inst string
	err := s.db.QueryRowContext(ctx, `SELECT institution_id FROM mcq_tests WHERE id = ?`, id).Scan(&inst)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.NotFound("test %s not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("get test owner: %w", err)
	}
	return inst, nil
}

// TestQuestions returns only the question list of a test.
func (s *Store) TestQuestions(ctx context.Context, id string) ([]model.Question, error) {
	var qjson string
	err := s.db.QueryRowContext(ctx, `SELECT questions_json FROM mcq_tests WHERE id = ?`, id).Scan(&qjson)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("test %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get test questions: %w", err)
	}
	var qs []model.Question
	if err := json.Unmarshal([]byte(qjson), &qs); err != nil {
		return nil, fmt.Errorf("decode questions of test %s: %w", id, err)
	}
	return qs, nil
}

// ListTestsByInstitution returns all tests owned by an institution, oldest first.
func (s *Store) ListTestsByInstitution(ctx context.Context, institutionID string) ([]model.Test, error) {
	return s.listTests(ctx,
		`SELECT `+testColumns+` FROM mcq_tests WHERE institution_id = ? ORDER BY created_at, id`,
		institutionID,
	)
}

// ListTestsForTarget returns the tests whose target set of the given kind contains ref.
func (s *Store) ListTestsForTarget(ctx context.Context, kind, ref string) ([]model.Test, error) {
	return s.listTests(ctx,
		`SELECT t.id, t.institution_id, t.type, t.title, t.status, t.questions_json, t.created_at
		 FROM mcq_tests t JOIN test_targets tt ON tt.test_id = t.id
		 WHERE tt.kind = ? AND tt.ref = ?
		 ORDER BY t.created_at, t.id`,
		kind, ref,
	)
}

// ListStudentTests returns an institution's tests that target the student.
// Enrollment ids are only unique within an institution.
func (s *Store) ListStudentTests(ctx context.Context, institutionID, studentID string) ([]model.Test, error) {
	return s.listTests(ctx,
		`SELECT t.id, t.institution_id, t.type, t.title, t.status, t.questions_json, t.created_at
		 FROM mcq_tests t JOIN test_targets tt ON tt.test_id = t.id
		 WHERE t.institution_id = ? AND tt.kind = ? AND tt.ref = ?
		 ORDER BY t.created_at, t.id`,
		institutionID, model.TargetStudent, studentID,
	)
}

// StudentAdmitted reports whether studentID may read or submit the test:
// either the test targets the student, or the student has an account in the
// institution owning the test.
func (s *Store) StudentAdmitted(ctx context.Context, testID, studentID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM test_targets WHERE test_id = ? AND kind = ? AND ref = ?
		 ) OR EXISTS (
			SELECT 1 FROM students st JOIN mcq_tests t ON t.institution_id = st.institution_id
			WHERE t.id = ? AND st.enrollment_id = ?
		 )`,
		testID, model.TargetStudent, studentID, testID, studentID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check student admission: %w", err)
	}
	return ok, nil
}

func (s *Store) listTests(ctx context.Context, query string, args ...any) ([]model.Test, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}
	tests := []model.Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		tests = append(tests, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tests {
		if err := s.fillTest(ctx, &tests[i]); err != nil {
			return nil, err
		}
	}
	return tests, nil
}

func (s *Store) fillTest(ctx context.Context, t *model.Test) error {
	targets, err := s.targets(ctx, s.db, t.ID)
	if err != nil {
		return err
	}
	t.AssignedFacultyIDs = targets.AssignedFacultyIDs
	t.AssignedStudentIDs = targets.AssignedStudentIDs
	t.AssignedBatchCodes = targets.AssignedBatchCodes
	t.Submissions, err = s.ListSubmissions(ctx, t.ID)
	return err
}

func (s *Store) targets(ctx context.Context, q querier, testID string) (model.Targets, error) {
	out := model.Targets{
		ID:                 testID,
		AssignedFacultyIDs: []string{},
		AssignedStudentIDs: []string{},
		AssignedBatchCodes: []string{},
	}
	rows, err := q.QueryContext(ctx,
		`SELECT kind, ref FROM test_targets WHERE test_id = ? ORDER BY rowid`, testID,
	)
	if err != nil {
		return out, fmt.Errorf("list test targets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind, ref string
		if err := rows.Scan(&kind, &ref); err != nil {
			return out, err
		}
		switch kind {
		case model.TargetFaculty:
			out.AssignedFacultyIDs = append(out.AssignedFacultyIDs, ref)
		case model.TargetStudent:
			out.AssignedStudentIDs = append(out.AssignedStudentIDs, ref)
		case model.TargetBatch:
			out.AssignedBatchCodes = append(out.AssignedBatchCodes, ref)
		}
	}
	return out, rows.Err()
}

// MergeTargets set-unions the given refs into the test's target sets and
// marks the test targeted. Existing members are never removed, so repeating
// a merge leaves the stored sets unchanged.
func (s *Store) MergeTargets(ctx context.Context, testID string, add map[string][]string) (model.Targets, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Targets{}, err
	}
	defer tx.Rollback()

	for _, kind := range []string{model.TargetFaculty, model.TargetStudent, model.TargetBatch} {
		for _, ref := range add[kind] {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO test_targets (test_id, kind, ref) VALUES (?, ?, ?)`,
				testID, kind, ref,
			)
			if isConstraint(err, "FOREIGN KEY") {
				return model.Targets{}, apperr.NotFound("test %s not found", testID)
			}
			if err != nil {
				return model.Targets{}, fmt.Errorf("insert test target: %w", err)
			}
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE mcq_tests SET status = ? WHERE id = ?`, model.StatusTargeted, testID)
	if err != nil {
		return model.Targets{}, fmt.Errorf("mark test targeted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Targets{}, apperr.NotFound("test %s not found", testID)
	}

	out, err := s.targets(ctx, tx, testID)
	if err != nil {
		return model.Targets{}, err
	}
	return out, tx.Commit()
}

// DeleteTest removes a test with its targets and submissions.
func (s *Store) DeleteTest(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM submissions WHERE test_id = ?`,
		`DELETE FROM test_targets WHERE test_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete test children: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM mcq_tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("test %s not found", id)
	}
	return tx.Commit()
}
