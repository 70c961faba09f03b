package assessment

import (
	"context"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// ResultsStore reads tests with their submissions.
type ResultsStore interface {
	GetTest(ctx context.Context, id string) (model.Test, error)
	TestInstitution(ctx context.Context, id string) (string, error)
}

// Aggregator projects stored submissions into result summaries.
type Aggregator struct {
	store ResultsStore
}

// NewAggregator creates an Aggregator.
func NewAggregator(s ResultsStore) *Aggregator {
	return &Aggregator{store: s}
}

// Results lists every submission of a test in the order recorded. No
// ranking or averaging is applied. It performs no tenant check; request
// paths go through ResultsFor.
func (a *Aggregator) Results(ctx context.Context, testID string) (model.TestResults, error) {
	t, err := a.store.GetTest(ctx, testID)
	if err != nil {
		return model.TestResults{}, err
	}
	return summarize(t), nil
}

// ResultsFor is Results restricted to tests owned by institutionID.
func (a *Aggregator) ResultsFor(ctx context.Context, institutionID, testID string) (model.TestResults, error) {
	owner, err := a.store.TestInstitution(ctx, testID)
	if err != nil {
		return model.TestResults{}, err
	}
	if owner != institutionID {
		return model.TestResults{}, apperr.Forbidden("test %s belongs to another institution", testID)
	}
	return a.Results(ctx, testID)
}

func summarize(t model.Test) model.TestResults {
	subs := make([]model.SubmissionSummary, 0, len(t.Submissions))
	for _, s := range t.Submissions {
		subs = append(subs, model.SubmissionSummary{
			StudentID:   s.StudentID,
			Score:       s.Score,
			AttemptedAt: s.AttemptedAt,
		})
	}
	return model.TestResults{ID: t.ID, Title: t.Title, Type: t.Type, Submissions: subs}
}
