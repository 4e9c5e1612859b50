// Package store persists report runs to Postgres (pgx) or SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"delivery-shift-report/internal/aggregate"
	"delivery-shift-report/internal/report"
)

// Supported database/sql driver names.
const (
	Postgres = "pgx"
	SQLite   = "sqlite3"
)

var validSchema = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store writes report runs through database/sql for either driver.
type Store struct {
	db     *sql.DB
	driver string
	schema string
}

// Open connects and pings. schema is only used for Postgres.
func Open(ctx context.Context, driver, dsn, schema string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database connection string missing")
	}
	s := &Store{driver: driver}
	switch driver {
	case Postgres:
		clean, err := sanitizeSchema(schema)
		if err != nil {
			return nil, err
		}
		s.schema = clean
	case SQLite:
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the run, segment and row tables if needed.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.driver == Postgres {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema)); err != nil {
			return err
		}
	}

	idType, timeType, dateType, floatType := "uuid", "timestamptz", "date", "numeric(10,2)"
	if s.driver == SQLite {
		idType, timeType, dateType, floatType = "TEXT", "DATETIME", "DATE", "REAL"
	}

	statements := []string{
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			generated_at %s NOT NULL,
			scheme text NOT NULL,
			run_tag text,
			created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, s.table("report_runs"), idType, timeType, timeType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			run_id %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			segment text NOT NULL,
			window_start %s,
			window_end %s,
			matched integer NOT NULL,
			in_window integer NOT NULL,
			negative_durations integer NOT NULL,
			condition_text text
		)`, s.table("report_segments"), idType, idType, s.table("report_runs"), dateType, dateType),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			segment_id %s NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
			table_name text NOT NULL,
			table_kind text NOT NULL,
			row_position integer NOT NULL,
			label text NOT NULL,
			total integer NOT NULL,
			morning integer NOT NULL,
			afternoon integer NOT NULL,
			morning_pct integer NOT NULL,
			afternoon_pct integer NOT NULL,
			avg_hours %s NOT NULL,
			buckets text NOT NULL
		)`, s.table("report_rows"), idType, idType, s.table("report_segments"), floatType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (run_id)`, s.index("report_segments_run_idx"), s.table("report_segments")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (segment_id)`, s.index("report_rows_segment_idx"), s.table("report_rows")),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CountRuns returns how many runs are stored.
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table("report_runs"))).Scan(&count)
	return count, err
}

// Seed stores rep only when no run exists yet. It returns "" when skipped.
func (s *Store) Seed(ctx context.Context, rep report.Report, tag string) (string, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return "", err
	}
	count, err := s.CountRuns(ctx)
	if err != nil {
		return "", err
	}
	if count > 0 {
		log.Printf("Report runs already present (%d); skipping seed", count)
		return "", nil
	}
	return s.SaveReport(ctx, rep, tag)
}

// SaveReport writes the run, its segments and every row (TOTAL included)
// in one transaction and returns the run id.
func (s *Store) SaveReport(ctx context.Context, rep report.Report, tag string) (string, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return "", err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(fmt.Sprintf(`
		INSERT INTO %s (id, generated_at, scheme, run_tag) VALUES (?, ?, ?, ?)`, s.table("report_runs"))),
		rep.ID, rep.GeneratedAt, rep.Scheme, nullString(tag),
	)
	if err != nil {
		return "", err
	}

	insertSegmentSQL := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (
			id, run_id, segment, window_start, window_end,
			matched, in_window, negative_durations, condition_text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table("report_segments")))
	insertRowSQL := s.rebind(fmt.Sprintf(`
		INSERT INTO %s (
			id, segment_id, table_name, table_kind, row_position, label, total,
			morning, afternoon, morning_pct, afternoon_pct, avg_hours, buckets
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table("report_rows")))

	for _, seg := range rep.Segments {
		segmentID := uuid.New()
		_, err = tx.ExecContext(ctx, insertSegmentSQL,
			segmentID,
			rep.ID,
			seg.Name,
			nullDate(seg.Window.Start),
			nullDate(seg.Window.End),
			seg.Matched,
			seg.InWindow,
			seg.Anomalies,
			nullString(seg.Condition()),
		)
		if err != nil {
			return "", err
		}

		for _, table := range seg.Tables {
			rows := append(append([]aggregate.DailyRow{}, table.Rows...), table.Total)
			for pos, row := range rows {
				buckets, err := json.Marshal(row.Buckets)
				if err != nil {
					return "", err
				}
				_, err = tx.ExecContext(ctx, insertRowSQL,
					uuid.New(),
					segmentID,
					table.Name,
					string(table.Kind),
					pos,
					row.Label,
					row.Total,
					row.Morning,
					row.Afternoon,
					row.MorningPct,
					row.AfternoonPct,
					row.AvgHours,
					string(buckets),
				)
				if err != nil {
					return "", err
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return rep.ID.String(), nil
}

func (s *Store) table(name string) string {
	if s.schema == "" {
		return name
	}
	return s.schema + "." + name
}

func (s *Store) index(name string) string {
	if s.schema == "" {
		return name
	}
	return s.schema + "_" + name
}

// rebind turns ? placeholders into $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != Postgres {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sanitizeSchema(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", errors.New("db schema is required")
	}
	if !validSchema.MatchString(value) {
		return "", fmt.Errorf("invalid schema name: %s", value)
	}
	return value, nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func nullDate(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}
