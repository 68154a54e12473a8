package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"
)

// ─── TYPES ───────────────────────────────────────────────────────────────────

// RenderRecord is what the gateway reports after a successful render.
type RenderRecord struct {
	Kind           string // customer | bulk | placeholder
	Subject        string // customer id, bulk report type or requested report id
	Filename       string
	SnapshotSHA256 string // empty for renders without a snapshot
	SizeBytes      int
	ChartsRendered int
	ChartsFailed   int
	IgnoredCharts  []string
	Requester      string // identity subject; empty when auth is disabled
	RequestID      string
	// Metadata is stored as JSONB; nil stores NULL.
	Metadata map[string]any
}

// RenderEntry is a stored row.
type RenderEntry struct {
	ID uuid.UUID
	RenderRecord
	CreatedAt time.Time
}

// SubjectSummary is the rollup for one subject.
type SubjectSummary struct {
	Subject        string
	RenderCount    int
	LastRenderID   uuid.UUID
	LastRenderedAt time.Time
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrNotFound is returned when a subject has no renders.
var ErrNotFound = errors.New("store: not found")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// RecordRender inserts the render row and bumps the subject rollup in one
// transaction, so the rollup count always equals the number of rows.
func (s *Store) RecordRender(ctx context.Context, rec RenderRecord) (RenderEntry, error) {
	meta, err := encodeMetadata(rec.Metadata)
	if err != nil {
		return RenderEntry{}, err
	}
	ignored := rec.IgnoredCharts
	if ignored == nil {
		ignored = []string{}
	}

	entry := RenderEntry{ID: uuid.New(), RenderRecord: rec}

	err = s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO report_renders (
				id, kind, subject, filename, snapshot_sha256, size_bytes,
				charts_rendered, charts_failed, ignored_charts,
				requester, request_id, metadata
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at`,
			entry.ID, rec.Kind, rec.Subject, rec.Filename, nullString(rec.SnapshotSHA256), rec.SizeBytes,
			rec.ChartsRendered, rec.ChartsFailed, pq.Array(ignored),
			nullString(rec.Requester), nullString(rec.RequestID), meta,
		)
		if err := row.Scan(&entry.CreatedAt); err != nil {
			return fmt.Errorf("store: insert render: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO report_subjects (subject, render_count, last_render_id, last_rendered_at)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (subject) DO UPDATE
			SET render_count     = report_subjects.render_count + 1,
			    last_render_id   = EXCLUDED.last_render_id,
			    last_rendered_at = EXCLUDED.last_rendered_at`,
			rec.Subject, entry.ID, entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("store: upsert subject: %w", err)
		}
		return nil
	})
	if err != nil {
		return RenderEntry{}, err
	}
	return entry, nil
}

// ListRenders returns the most recent renders for subject, newest first.
func (s *Store) ListRenders(ctx context.Context, subject string, limit int) ([]RenderEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.QueryContext(ctx, `
		SELECT id, kind, subject, filename, snapshot_sha256, size_bytes,
		       charts_rendered, charts_failed, ignored_charts,
		       requester, request_id, metadata, created_at
		FROM report_renders
		WHERE subject = $1
		ORDER BY created_at DESC, id
		LIMIT $2`, subject, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list renders: %w", err)
	}
	defer rows.Close()

	var out []RenderEntry
	for rows.Next() {
		var (
			e                            RenderEntry
			digest, requester, requestID sql.NullString
			meta                         pqtype.NullRawMessage
		)
		if err := rows.Scan(
			&e.ID, &e.Kind, &e.Subject, &e.Filename, &digest, &e.SizeBytes,
			&e.ChartsRendered, &e.ChartsFailed, pq.Array(&e.IgnoredCharts),
			&requester, &requestID, &meta, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan render: %w", err)
		}
		e.SnapshotSHA256, e.Requester, e.RequestID = digest.String, requester.String, requestID.String
		if meta.Valid {
			if err := json.Unmarshal(meta.RawMessage, &e.Metadata); err != nil {
				return nil, fmt.Errorf("store: decode metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list renders: %w", err)
	}
	return out, nil
}

// SubjectSummary returns the rollup for subject, or ErrNotFound.
func (s *Store) SubjectSummary(ctx context.Context, subject string) (SubjectSummary, error) {
	var sum SubjectSummary
	err := s.pool.QueryRowContext(ctx, `
		SELECT subject, render_count, last_render_id, last_rendered_at
		FROM report_subjects WHERE subject = $1`, subject,
	).Scan(&sum.Subject, &sum.RenderCount, &sum.LastRenderID, &sum.LastRenderedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SubjectSummary{}, ErrNotFound
	}
	if err != nil {
		return SubjectSummary{}, fmt.Errorf("store: subject summary: %w", err)
	}
	return sum, nil
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func encodeMetadata(m map[string]any) (pqtype.NullRawMessage, error) {
	if len(m) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("store: marshal metadata: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: b, Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ─── DISCARD ─────────────────────────────────────────────────────────────────

// Discard is the render log used when no database is configured. It records
// nothing.
type Discard struct{}

func (Discard) RecordRender(_ context.Context, rec RenderRecord) (RenderEntry, error) {
	return RenderEntry{RenderRecord: rec}, nil
}
