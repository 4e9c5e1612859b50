package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"delivery-shift-report/internal/delivery"
	"delivery-shift-report/internal/report"
	"delivery-shift-report/internal/segment"
	"delivery-shift-report/internal/window"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "delivery-report-test.db")
	s, err := Open(context.Background(), SQLite, dbPath, "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testReport() report.Report {
	at := func(day, hour int) time.Time { return time.Date(2024, 10, day, hour, 0, 0, 0, time.UTC) }
	table := delivery.Table{
		HasCustomer:  true,
		HasPickupHub: true,
		Records: []delivery.Record{
			{Customer: "WESTSIDE", PickupHub: "WD27", PickedAt: at(1, 5), DeliveredAt: at(1, 6)},
			{Customer: "WESTSIDE", PickupHub: "WD27", PickedAt: at(1, 14), DeliveredAt: at(1, 17)},
			{Customer: "WESTSIDE", PickupHub: "WD27", PickedAt: at(2, 3), DeliveredAt: at(2, 16)},
		},
	}
	return report.Build(table, report.Options{
		Customer: segment.CustomerRule{Mode: segment.Contains, Value: "WESTSIDE"},
		Hub:      "WD27",
		Window:   window.DefaultRolling(),
		Scheme:   delivery.Coarse(),
		Negative: delivery.PassThrough,
		Tables:   []report.Kind{report.Summary},
		Today:    at(2, 0),
	})
}

func TestSaveReportSQLite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rep := testReport()

	runID, err := s.SaveReport(ctx, rep, "nightly")
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if runID != rep.ID.String() {
		t.Fatalf("expected run id %s, got %s", rep.ID, runID)
	}

	count, err := s.CountRuns(ctx)
	if err != nil {
		t.Fatalf("CountRuns failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 run, got %d", count)
	}

	var segments int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM report_segments`).Scan(&segments); err != nil {
		t.Fatalf("count segments: %v", err)
	}
	if segments != 2 {
		t.Fatalf("expected 2 segments, got %d", segments)
	}

	var rows int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM report_rows`).Scan(&rows); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 2 day rows + TOTAL, got %d", rows)
	}

	var total, morningPct int
	err = s.db.QueryRow(`SELECT total, morning_pct FROM report_rows WHERE label = 'TOTAL'`).Scan(&total, &morningPct)
	if err != nil {
		t.Fatalf("query TOTAL row: %v", err)
	}
	if total != 3 || morningPct != 67 {
		t.Fatalf("unexpected TOTAL row total=%d morning_pct=%d", total, morningPct)
	}

	var condition string
	err = s.db.QueryRow(`SELECT condition_text FROM report_segments WHERE segment = 'Store'`).Scan(&condition)
	if err != nil {
		t.Fatalf("query store segment: %v", err)
	}
	if condition == "" {
		t.Fatalf("expected the store condition to be stored")
	}
}

func TestSeedSkipsWhenRunsExist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Seed(ctx, testReport(), "")
	if err != nil {
		t.Fatalf("first Seed failed: %v", err)
	}
	if first == "" {
		t.Fatalf("expected first seed to store a run")
	}
	second, err := s.Seed(ctx, testReport(), "")
	if err != nil {
		t.Fatalf("second Seed failed: %v", err)
	}
	if second != "" {
		t.Fatalf("expected second seed to be skipped, got %s", second)
	}
}

func TestOpenValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, SQLite, "", ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	if _, err := Open(ctx, "mysql", "dsn", ""); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
	if _, err := Open(ctx, Postgres, "postgres://localhost/x", "bad-schema;"); err == nil {
		t.Fatalf("expected error for invalid schema")
	}
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("INSERT INTO t (a, b, c) VALUES (?, ?, ?)")
	if got != "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)" {
		t.Fatalf("unexpected rebind: %s", got)
	}
	s := &Store{driver: SQLite}
	if q := s.rebind("SELECT ?"); q != "SELECT ?" {
		t.Fatalf("sqlite queries must keep ? placeholders, got %s", q)
	}
}

func TestSanitizeSchema(t *testing.T) {
	if v, err := sanitizeSchema(" delivery_shift_report "); err != nil || v != "delivery_shift_report" {
		t.Fatalf("unexpected result: %q %v", v, err)
	}
	if _, err := sanitizeSchema(""); err == nil {
		t.Fatalf("expected error for empty schema")
	}
	if _, err := sanitizeSchema("1abc"); err == nil {
		t.Fatalf("expected error for schema starting with a digit")
	}
}

func TestTableQualification(t *testing.T) {
	pg := &Store{driver: Postgres, schema: "reports"}
	if pg.table("report_runs") != "reports.report_runs" || pg.index("x_idx") != "reports_x_idx" {
		t.Fatalf("unexpected postgres qualification")
	}
	lite := &Store{driver: SQLite}
	if lite.table("report_runs") != "report_runs" {
		t.Fatalf("unexpected sqlite qualification")
	}
}
