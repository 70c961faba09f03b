package assessment

import (
	"context"
	"log/slog"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// TargetStore persists a test's target sets and resolves batch membership.
type TargetStore interface {
	TestInstitution(ctx context.Context, testID string) (string, error)
	StudentsInBatches(ctx context.Context, institutionID string, codes []string) ([]string, error)
	MergeTargets(ctx context.Context, testID string, add map[string][]string) (model.Targets, error)
}

// Assignment is one targeting request. Every list is optional.
type Assignment struct {
	FacultyIDs []string
	StudentIDs []string
	BatchCodes []string
}

// Resolver merges explicit ids and batch-derived students into a test's
// target sets.
type Resolver struct {
	store TargetStore
}

// NewResolver creates a Resolver.
func NewResolver(s TargetStore) *Resolver {
	return &Resolver{store: s}
}

// Assign adds the requested participants to the test. Students of the named
// batches are expanded into the student set; the batch codes themselves are
// recorded too. Nothing is ever removed, so repeating an assignment or
// sending a subset of an earlier one leaves the stored sets unchanged.
func (r *Resolver) Assign(ctx context.Context, institutionID, testID string, a Assignment) (model.Targets, error) {
	faculty := dedupe(a.FacultyIDs)
	students := dedupe(a.StudentIDs)
	codes := dedupe(a.BatchCodes)
	if len(faculty)+len(students)+len(codes) == 0 {
		return model.Targets{}, apperr.EmptyParticipants()
	}

	owner, err := r.store.TestInstitution(ctx, testID)
	if err != nil {
		return model.Targets{}, err
	}
	if owner != institutionID {
		return model.Targets{}, apperr.Forbidden("test %s belongs to another institution", testID)
	}

	if len(codes) > 0 {
		members, err := r.store.StudentsInBatches(ctx, institutionID, codes)
		if err != nil {
			return model.Targets{}, err
		}
		students = union(students, members)
	}

	targets, err := r.store.MergeTargets(ctx, testID, map[string][]string{
		model.TargetFaculty: faculty,
		model.TargetStudent: students,
		model.TargetBatch:   codes,
	})
	if err != nil {
		return model.Targets{}, err
	}
	slog.Info("assigned participants",
		"test_id", testID,
		"faculty", len(targets.AssignedFacultyIDs),
		"students", len(targets.AssignedStudentIDs),
		"batches", len(targets.AssignedBatchCodes),
	)
	return targets, nil
}
