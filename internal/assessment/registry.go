// Package assessment holds the test assignment and grading engine: batch
// membership, participant targeting, the test catalog, submission grading
// and result aggregation.
package assessment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// Actor identifies the caller of a mutating call. FacultyID is empty when
// the institution itself acts.
type Actor struct {
	InstitutionID string
	FacultyID     string
}

// BatchStore persists batches and their membership.
type BatchStore interface {
	CreateBatch(ctx context.Context, b model.Batch) (model.Batch, error)
	GetBatch(ctx context.Context, institutionID, code string) (model.Batch, error)
	AddBatchStudents(ctx context.Context, b model.Batch, studentIDs []string) (int64, error)
	ListBatchesByInstitution(ctx context.Context, institutionID string) ([]model.Batch, error)
	ListBatchesByFaculty(ctx context.Context, facultyID string) ([]model.Batch, error)
}

// Registry owns batch membership.
type Registry struct {
	store BatchStore
}

// NewRegistry creates a Registry.
func NewRegistry(s BatchStore) *Registry {
	return &Registry{store: s}
}

// CreateBatch creates an empty batch. The code must be unique within the institution.
func (r *Registry) CreateBatch(ctx context.Context, institutionID, code string, meta model.BatchMeta) (model.Batch, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.Batch{}, apperr.Validation("batch_code is required")
	}
	if institutionID == "" {
		return model.Batch{}, apperr.Validation("institution id is required")
	}
	b, err := r.store.CreateBatch(ctx, model.Batch{
		Code:          code,
		InstitutionID: institutionID,
		FacultyID:     meta.FacultyID,
		Name:          meta.Name,
		Department:    meta.Department,
		Year:          meta.Year,
		Section:       meta.Section,
	})
	if err != nil {
		return model.Batch{}, err
	}
	slog.Info("created batch", "institution_id", institutionID, "batch_code", code, "faculty_id", meta.FacultyID)
	return b, nil
}

// AddStudents set-unions studentIDs into a batch of the actor's institution
// and returns the updated batch. A faculty actor may only grow batches that
// are unassigned or assigned to them.
func (r *Registry) AddStudents(ctx context.Context, actor Actor, code string, studentIDs []string) (model.Batch, error) {
	ids := dedupe(studentIDs)
	if len(ids) == 0 {
		return model.Batch{}, apperr.Validation("student_ids must not be empty")
	}
	b, err := r.store.GetBatch(ctx, actor.InstitutionID, code)
	if err != nil {
		return model.Batch{}, err
	}
	if actor.FacultyID != "" && b.FacultyID != "" && b.FacultyID != actor.FacultyID {
		return model.Batch{}, apperr.Forbidden("batch %q belongs to another faculty member", code)
	}

	updated, err := r.store.AddBatchStudents(ctx, b, ids)
	if err != nil {
		return model.Batch{}, err
	}
	slog.Info("added students to batch",
		"institution_id", actor.InstitutionID,
		"batch_code", code,
		"requested", len(ids),
		"accounts_updated", updated,
	)
	return r.store.GetBatch(ctx, actor.InstitutionID, code)
}

// ListByInstitution returns the batches of an institution.
func (r *Registry) ListByInstitution(ctx context.Context, institutionID string) ([]model.Batch, error) {
	return r.store.ListBatchesByInstitution(ctx, institutionID)
}

// ListByFaculty returns the batches attached to a faculty member.
func (r *Registry) ListByFaculty(ctx context.Context, facultyID string) ([]model.Batch, error) {
	return r.store.ListBatchesByFaculty(ctx, facultyID)
}

// dedupe drops blanks and repeats, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// union appends the members of extra missing from base.
func union(base, extra []string) []string {
	return dedupe(append(append([]string(nil), base...), extra...))
}
