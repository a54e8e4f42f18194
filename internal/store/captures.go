package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Capture is one stored conversation payload.
type Capture struct {
	ID         uuid.UUID
	Platform   string
	Payload    json.RawMessage
	Source     string
	CapturedAt time.Time
}

// CaptureSummary omits the payload body for listings.
type CaptureSummary struct {
	ID          uuid.UUID `json:"id"`
	Platform    string    `json:"platform"`
	Source      string    `json:"source"`
	PayloadSize int       `json:"payload_size"`
	CapturedAt  time.Time `json:"captured_at"`
}

// SaveCapture stores a raw payload and returns its id.
func (s *Store) SaveCapture(ctx context.Context, platform string, payload json.RawMessage, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO captures (id, platform, payload, source, captured_at)
		VALUES ($1, $2, $3, $4, now())`,
		id, platform, payload, source,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert capture: %w", err)
	}
	return id, nil
}

func (s *Store) GetCapture(ctx context.Context, id uuid.UUID) (Capture, error) {
	var c Capture
	err := s.pool.QueryRow(ctx, `
		SELECT id, platform, payload, source, captured_at
		FROM captures WHERE id = $1`, id,
	).Scan(&c.ID, &c.Platform, &c.Payload, &c.Source, &c.CapturedAt)
	if err != nil {
		return Capture{}, fmt.Errorf("get capture: %w", err)
	}
	return c, nil
}

// ListCaptures returns the newest captures first, optionally filtered by
// platform.
func (s *Store) ListCaptures(ctx context.Context, platform string, limit int) ([]CaptureSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, platform, source, length(payload::text), captured_at
		FROM captures
		WHERE ($1 = '' OR platform = $1)
		ORDER BY captured_at DESC
		LIMIT $2`, platform, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var out []CaptureSummary
	for rows.Next() {
		var c CaptureSummary
		if err := rows.Scan(&c.ID, &c.Platform, &c.Source, &c.PayloadSize, &c.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCapture(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM captures WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("capture %s not found", id)
	}
	return nil
}

// RecordExport writes the audit row for a generated export.
func (s *Store) RecordExport(ctx context.Context, captureID uuid.UUID, fileCount int) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exports (id, capture_id, file_count, generated_at)
		VALUES ($1, $2, $3, now())`,
		id, captureID, fileCount,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert export: %w", err)
	}
	return id, nil
}
