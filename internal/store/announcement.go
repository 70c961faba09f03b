package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/mcqengine/internal/model"
)

// InsertAnnouncement stores an announcement and returns its id.
func (s *Store) InsertAnnouncement(ctx context.Context, a model.Announcement) (int64, error) {
	codes := a.BatchCodes
	if codes == nil {
		codes = []string{}
	}
	cj, err := json.Marshal(codes)
	if err != nil {
		return 0, fmt.Errorf("encode batch codes: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (institution_id, title, message, batch_codes_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.InstitutionID, a.Title, a.Message, string(cj), a.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert announcement: %w", err)
	}
	return res.LastInsertId()
}

// ListAnnouncements returns an institution's announcements, newest first.
func (s *Store) ListAnnouncements(ctx context.Context, institutionID string) ([]model.Announcement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, institution_id, title, message, batch_codes_json, created_at
		 FROM announcements WHERE institution_id = ? ORDER BY id DESC`, institutionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	defer rows.Close()
	out := []model.Announcement{}
	for rows.Next() {
		var a model.Announcement
		var cj string
		if err := rows.Scan(&a.ID, &a.InstitutionID, &a.Title, &a.Message, &cj, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cj), &a.BatchCodes); err != nil {
			return nil, fmt.Errorf("decode batch codes of announcement %d: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
