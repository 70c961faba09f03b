package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// CreateFaculty inserts a faculty account.
func (s *Store) CreateFaculty(ctx context.Context, f model.Faculty) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO faculty (id, institution_id, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.InstitutionID, f.Name, f.PasswordHash, time.Now().UTC(),
	)
	if isConstraint(err, "UNIQUE") {
		return apperr.Conflict("faculty %q already exists", f.ID)
	}
	if err != nil {
		slog.Error("failed to create faculty", "id", f.ID, "error", err)
		return fmt.Errorf("insert faculty: %w", err)
	}
	slog.Info("created faculty", "id", f.ID, "institution_id", f.InstitutionID)
	return nil
}

// GetFaculty returns a faculty account by id.
func (s *Store) GetFaculty(ctx context.Context, id string) (model.Faculty, error) {
	var f model.Faculty
	err := s.db.QueryRowContext(ctx,
		`SELECT id, institution_id, name, password_hash, created_at FROM faculty WHERE id = ?`, id,
	).Scan(&f.ID, &f.InstitutionID, &f.Name, &f.PasswordHash, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Faculty{}, apperr.NotFound("faculty %q not found", id)
	}
	if err != nil {
		return model.Faculty{}, fmt.Errorf("get faculty: %w", err)
	}
	return f, nil
}

// CreateStudent inserts a student account. Enrollment ids are unique per institution.
func (s *Store) CreateStudent(ctx context.Context, st model.Student) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (enrollment_id, institution_id, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		st.EnrollmentID, st.InstitutionID, st.Name, st.PasswordHash, time.Now().UTC(),
	)
	if isConstraint(err, "UNIQUE") {
		return apperr.Conflict("student %q already exists in institution %q", st.EnrollmentID, st.InstitutionID)
	}
	if err != nil {
		slog.Error("failed to create student", "enrollment_id", st.EnrollmentID, "error", err)
		return fmt.Errorf("insert student: %w", err)
	}
	slog.Info("created student", "enrollment_id", st.EnrollmentID, "institution_id", st.InstitutionID)
	return nil
}

// GetStudent returns a student account by institution and enrollment id.
func (s *Store) GetStudent(ctx context.Context, institutionID, enrollmentID string) (model.Student, error) {
	var st model.Student
	var batchID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT enrollment_id, institution_id, name, password_hash, batch_id, faculty_id, created_at
		 FROM students WHERE institution_id = ? AND enrollment_id = ?`, institutionID, enrollmentID,
	).Scan(&st.EnrollmentID, &st.InstitutionID, &st.Name, &st.PasswordHash, &batchID, &st.FacultyID, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, apperr.NotFound("student %q not found", enrollmentID)
	}
	if err != nil {
		return model.Student{}, fmt.Errorf("get student: %w", err)
	}
	if batchID.Valid {
		st.BatchID = &batchID.Int64
	}
	return st, nil
}
