package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/nyashahama/risk-report-engine/internal/store"
)

// ─── TEST INFRASTRUCTURE ──────────────────────────────────────────────────────

// openTestDB returns a migrated Store from DATABASE_URL. Skips if the env var
// is not set so the test suite still passes in CI without a Postgres instance.
func openTestDB(t *testing.T) (*sql.DB, *store.Store) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping store integration tests")
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if err := pool.PingContext(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	st := store.New(pool)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return pool, st
}

// cleanupSubject removes every row written for subject.
func cleanupSubject(t *testing.T, pool *sql.DB, subject string) {
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.ExecContext(ctx, "DELETE FROM report_subjects WHERE subject=$1", subject)
		_, _ = pool.ExecContext(ctx, "DELETE FROM report_renders WHERE subject=$1", subject)
	})
}

// ─── Migrate ──────────────────────────────────────────────────────────────────

func TestMigrate_Idempotent(t *testing.T) {
	_, st := openTestDB(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

// ─── RecordRender ─────────────────────────────────────────────────────────────

func TestRecordRender_RoundTrip(t *testing.T) {
	pool, st := openTestDB(t)
	ctx := context.Background()
	subject := "CUST-" + t.Name()
	cleanupSubject(t, pool, subject)

	entry, err := st.RecordRender(ctx, store.RenderRecord{
		Kind:           "customer",
		Subject:        subject,
		Filename:       "rajesh-kumar-report.pdf",
		SnapshotSHA256: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		SizeBytes:      48213,
		ChartsRendered: 3,
		ChartsFailed:   1,
		IgnoredCharts:  []string{"spending"},
		Requester:      "analyst-7",
		RequestID:      "req-1",
		Metadata:       map[string]any{"status": "critical"},
	})
	if err != nil {
		t.Fatalf("RecordRender: %v", err)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	list, err := st.ListRenders(ctx, subject, 10)
	if err != nil {
		t.Fatalf("ListRenders: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d renders, want 1", len(list))
	}
	got := list[0]
	if got.ID != entry.ID || got.ChartsFailed != 1 || got.Requester != "analyst-7" {
		t.Errorf("row mismatch: %+v", got)
	}
	if len(got.IgnoredCharts) != 1 || got.IgnoredCharts[0] != "spending" {
		t.Errorf("ignored charts: %v", got.IgnoredCharts)
	}
	if got.Metadata["status"] != "critical" {
		t.Errorf("metadata: %v", got.Metadata)
	}
}

func TestRecordRender_NullableFields(t *testing.T) {
	pool, st := openTestDB(t)
	ctx := context.Background()
	subject := "RPT-" + t.Name()
	cleanupSubject(t, pool, subject)

	if _, err := st.RecordRender(ctx, store.RenderRecord{
		Kind: "placeholder", Subject: subject, Filename: "report-x.pdf", SizeBytes: 900,
	}); err != nil {
		t.Fatalf("RecordRender: %v", err)
	}
	list, err := st.ListRenders(ctx, subject, 0)
	if err != nil {
		t.Fatalf("ListRenders: %v", err)
	}
	if len(list) != 1 || list[0].SnapshotSHA256 != "" || list[0].Metadata != nil || len(list[0].IgnoredCharts) != 0 {
		t.Errorf("row = %+v", list)
	}
}

func TestRecordRender_MaintainsSubjectRollup(t *testing.T) {
	pool, st := openTestDB(t)
	ctx := context.Background()
	subject := "CUST-" + t.Name()
	cleanupSubject(t, pool, subject)

	var last store.RenderEntry
	for range 3 {
		e, err := st.RecordRender(ctx, store.RenderRecord{Kind: "customer", Subject: subject, Filename: "a.pdf", SizeBytes: 1})
		if err != nil {
			t.Fatalf("RecordRender: %v", err)
		}
		last = e
	}

	sum, err := st.SubjectSummary(ctx, subject)
	if err != nil {
		t.Fatalf("SubjectSummary: %v", err)
	}
	if sum.RenderCount != 3 || sum.LastRenderID != last.ID {
		t.Errorf("summary = %+v, want count 3 and last id %s", sum, last.ID)
	}
}

func TestRecordRender_RejectsUnknownKind(t *testing.T) {
	pool, st := openTestDB(t)
	subject := "X-" + t.Name()
	cleanupSubject(t, pool, subject)

	_, err := st.RecordRender(context.Background(), store.RenderRecord{Kind: "invoice", Subject: subject, Filename: "x.pdf"})
	if err == nil {
		t.Fatal("expected check constraint violation")
	}
	if _, err := st.SubjectSummary(context.Background(), subject); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("rollup must roll back with the insert, got %v", err)
	}
}

// ─── Discard ──────────────────────────────────────────────────────────────────

func TestDiscard(t *testing.T) {
	rec := store.RenderRecord{Kind: "bulk", Subject: "critical"}
	e, err := store.Discard{}.RecordRender(context.Background(), rec)
	if err != nil || e.Subject != "critical" {
		t.Errorf("Discard.RecordRender = %+v, %v", e, err)
	}
}
