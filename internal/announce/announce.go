// Package announce publishes the notice sent to batches when a test is created.
package announce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/mcqengine/internal/model"
)

// Sink stores announcements.
type Sink interface {
	InsertAnnouncement(ctx context.Context, a model.Announcement) (int64, error)
}

// Composer writes the title and body of a test announcement.
type Composer interface {
	Compose(ctx context.Context, t model.Test, batchCodes []string) (title, message string, err error)
}

// Service composes and stores test announcements.
type Service struct {
	sink     Sink
	composer Composer
}

// New creates a Service. A nil composer uses the built-in template.
func New(sink Sink, composer Composer) *Service {
	if composer == nil {
		composer = TemplateComposer{}
	}
	return &Service{sink: sink, composer: composer}
}

// Announce records the announcement for a newly created test.
func (s *Service) Announce(ctx context.Context, t model.Test, batchCodes []string) error {
	title, message, err := s.composer.Compose(ctx, t, batchCodes)
	if err != nil {
		return fmt.Errorf("compose announcement: %w", err)
	}
	id, err := s.sink.InsertAnnouncement(ctx, model.Announcement{
		InstitutionID: t.InstitutionID,
		Title:         title,
		Message:       message,
		BatchCodes:    batchCodes,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	slog.Debug("announcement stored", "announcement_id", id, "test_id", t.ID, "batches", len(batchCodes))
	return nil
}
