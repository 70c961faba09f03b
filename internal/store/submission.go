package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// AppendSubmission records an attempt. Every call adds a row; earlier
// attempts by the same student are kept.
func (s *Store) AppendSubmission(ctx context.Context, testID string, sub model.Submission) (model.Submission, error) {
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return model.Submission{}, fmt.Errorf("encode answers: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (test_id, student_id, answers_json, score, attempted_at) VALUES (?, ?, ?, ?, ?)`,
		testID, sub.StudentID, string(aj), sub.Score, sub.AttemptedAt,
	)
	if isConstraint(err, "FOREIGN KEY") {
		return model.Submission{}, apperr.NotFound("test %s not found", testID)
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	if sub.ID, err = res.LastInsertId(); err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// AppendFirstSubmission records an attempt only if the student has none for
// this test yet. The check and the insert are one statement.
func (s *Store) AppendFirstSubmission(ctx context.Context, testID string, sub model.Submission) (model.Submission, error) {
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return model.Submission{}, fmt.Errorf("encode answers: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (test_id, student_id, answers_json, score, attempted_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM submissions WHERE test_id = ? AND student_id = ?)`,
		testID, sub.StudentID, string(aj), sub.Score, sub.AttemptedAt, testID, sub.StudentID,
	)
	if isConstraint(err, "FOREIGN KEY") {
		return model.Submission{}, apperr.NotFound("test %s not found", testID)
	}
	if err != nil {
		return model.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Submission{}, err
	}
	if n == 0 {
		return model.Submission{}, apperr.Conflict("student %s has already submitted test %s", sub.StudentID, testID)
	}
	if sub.ID, err = res.LastInsertId(); err != nil {
		return model.Submission{}, err
	}
	return sub, nil
}

// ListSubmissions returns every attempt at a test in the order recorded.
func (s *Store) ListSubmissions(ctx context.Context, testID string) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, answers_json, score, attempted_at FROM submissions WHERE test_id = ? ORDER BY id`,
		testID,
	)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()
	subs := []model.Submission{}
	for rows.Next() {
		var sub model.Submission
		var aj string
		if err := rows.Scan(&sub.ID, &sub.StudentID, &aj, &sub.Score, &sub.AttemptedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &sub.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of submission %d: %w", sub.ID, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
