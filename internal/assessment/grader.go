package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// SubmissionStore records graded attempts.
type SubmissionStore interface {
	TestQuestions(ctx context.Context, testID string) ([]model.Question, error)
	AppendSubmission(ctx context.Context, testID string, sub model.Submission) (model.Submission, error)
	AppendFirstSubmission(ctx context.Context, testID string, sub model.Submission) (model.Submission, error)
	StudentAdmitted(ctx context.Context, testID, studentID string) (bool, error)
}

type admitter interface {
	StudentAdmitted(ctx context.Context, testID, studentID string) (bool, error)
}

// admit fails with Forbidden unless the student is targeted by the test or
// enrolled in the institution that owns it.
func admit(ctx context.Context, s admitter, testID, studentID string) error {
	ok, err := s.StudentAdmitted(ctx, testID, studentID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("student %s is not a participant of test %s", studentID, testID)
	}
	return nil
}

// Score counts the positions where answers match the key. Answers past the
// last question are ignored.
func Score(questions []model.Question, answers []int) int {
	n := min(len(questions), len(answers))
	score := 0
	for i := range n {
		if answers[i] == questions[i].CorrectIndex {
			score++
		}
	}
	return score
}

// Grader scores and records submissions.
type Grader struct {
	store  SubmissionStore
	policy model.RetakePolicy
	now    func() time.Time
}

// NewGrader creates a Grader. An empty policy means unlimited retakes.
func NewGrader(s SubmissionStore, policy model.RetakePolicy) (*Grader, error) {
	if policy == "" {
		policy = model.RetakeUnlimited
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("unknown retake policy %q", policy)
	}
	return &Grader{
		store:  s,
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Policy returns the retake policy in effect.
func (g *Grader) Policy() model.RetakePolicy {
	return g.policy
}

// Submit grades answers against the test's key and appends the attempt.
// Students outside the test's institution that it does not target are
// rejected with Forbidden. Under the single-attempt policy a second attempt
// fails with Conflict.
func (g *Grader) Submit(ctx context.Context, studentID, testID string, answers []int) (model.ScoreResult, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return model.ScoreResult{}, apperr.Validation("student id is required")
	}
	questions, err := g.store.TestQuestions(ctx, testID)
	if err != nil {
		return model.ScoreResult{}, err
	}
	if err := admit(ctx, g.store, testID, studentID); err != nil {
		return model.ScoreResult{}, err
	}

	sub := model.Submission{
		StudentID:   studentID,
		Answers:     append([]int{}, answers...),
		Score:       Score(questions, answers),
		AttemptedAt: g.now(),
	}
	if g.policy == model.RetakeSingle {
		sub, err = g.store.AppendFirstSubmission(ctx, testID, sub)
	} else {
		sub, err = g.store.AppendSubmission(ctx, testID, sub)
	}
	if err != nil {
		return model.ScoreResult{}, err
	}
	slog.Info("graded submission",
		"test_id", testID,
		"student_id", studentID,
		"score", sub.Score,
		"total", len(questions),
	)
	return model.ScoreResult{Score: sub.Score, Total: len(questions)}, nil
}
