package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/mcqengine/internal/model"
)

// ExportResults builds the export document for one test.
func (s *Store) ExportResults(ctx context.Context, testID string) (model.ResultsExport, error) {
	t, err := s.GetTest(ctx, testID)
	if err != nil {
		return model.ResultsExport{}, fmt.Errorf("get test %s: %w", testID, err)
	}

	// Track attempt count per student for attempt_number.
	attempts := make(map[string]int)

	results := make([]model.StudentEntry, 0, len(t.Submissions))
	for _, sub := range t.Submissions {
		attempts[sub.StudentID]++
		results = append(results, model.StudentEntry{
			StudentID:     sub.StudentID,
			AttemptNumber: attempts[sub.StudentID],
			Answers:       sub.Answers,
			Score:         sub.Score,
			Total:         len(t.Questions),
			AttemptedAt:   sub.AttemptedAt,
		})
	}

	return model.ResultsExport{
		TestID:        t.ID,
		InstitutionID: t.InstitutionID,
		Title:         t.Title,
		Type:          t.Type,
		NumQuestions:  len(t.Questions),
		ExportedAt:    time.Now().UTC(),
		Results:       results,
	}, nil
}
