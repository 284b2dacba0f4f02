// SPDX-License-Identifier: MIT

// Package audit persists tool invocations and generated reports to SQLite.
// Auditing is best effort: a failed write logs a warning and never fails the
// tool that triggered it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/quellwerk/supportd/internal/log"
)

const busyTimeout = 5 * time.Second

// Store wraps the audit database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Invocation is one recorded tool call.
type Invocation struct {
	ID        int64
	Tool      string
	Args      string
	Outcome   string
	Duration  time.Duration
	CreatedAt time.Time
}

// ReportRow is one persisted support report.
type ReportRow struct {
	ID         int64
	PeriodDays int
	Total      int
	Opened     int
	Closed     int
	Types      map[string]int
	Priorities map[string]int
	CreatedAt  time.Time
}

// Open creates or opens the audit database at path and applies the schema.
// WAL mode and busy_timeout go through the DSN so they hold for every pooled
// connection.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: ping failed: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, logger: log.WithComponent("audit")}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tool        TEXT NOT NULL,
	args_json   TEXT NOT NULL DEFAULT '{}',
	outcome     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_invocations_tool ON tool_invocations(tool);
CREATE INDEX IF NOT EXISTS idx_invocations_created ON tool_invocations(created_at);

CREATE TABLE IF NOT EXISTS reports (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	period_days     INTEGER NOT NULL,
	total           INTEGER NOT NULL,
	opened          INTEGER NOT NULL,
	closed          INTEGER NOT NULL,
	types_json      TEXT NOT NULL DEFAULT '{}',
	priorities_json TEXT NOT NULL DEFAULT '{}',
	created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("audit: migrate failed: %w", err)
	}
	return nil
}

// RecordInvocation writes one tool call row. Errors are logged, not returned.
func (s *Store) RecordInvocation(ctx context.Context, tool, argsJSON, outcome string, duration time.Duration) {
	if argsJSON == "" {
		argsJSON = "{}"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_invocations (tool, args_json, outcome, duration_ms) VALUES (?, ?, ?, ?)`,
		tool, argsJSON, outcome, duration.Milliseconds())
	if err != nil {
		s.logger.Warn().Err(err).Str(log.FieldTool, tool).Msg("audit write failed")
	}
}

// RecordReport persists a generated report and returns its row id.
func (s *Store) RecordReport(ctx context.Context, r ReportRow) (int64, error) {
	types, err := json.Marshal(r.Types)
	if err != nil {
		return 0, fmt.Errorf("audit: marshal types: %w", err)
	}
	priorities, err := json.Marshal(r.Priorities)
	if err != nil {
		return 0, fmt.Errorf("audit: marshal priorities: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (period_days, total, opened, closed, types_json, priorities_json) VALUES (?, ?, ?, ?, ?, ?)`,
		r.PeriodDays, r.Total, r.Opened, r.Closed, string(types), string(priorities))
	if err != nil {
		return 0, fmt.Errorf("audit: insert report: %w", err)
	}
	return res.LastInsertId()
}

// RecentInvocations returns the newest rows, newest first.
func (s *Store) RecentInvocations(ctx context.Context, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, args_json, outcome, duration_ms, created_at FROM tool_invocations ORDER BY id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query invocations: %w", err)
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		var inv Invocation
		var durationMS int64
		var created string
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Args, &inv.Outcome, &durationMS, &created); err != nil {
			return nil, fmt.Errorf("audit: scan invocation: %w", err)
		}
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		inv.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// LatestReport returns the most recent report row, or nil when none exists.
func (s *Store) LatestReport(ctx context.Context) (*ReportRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, period_days, total, opened, closed, types_json, priorities_json, created_at FROM reports ORDER BY id DESC LIMIT 1`)

	var r ReportRow
	var types, priorities, created string
	err := row.Scan(&r.ID, &r.PeriodDays, &r.Total, &r.Opened, &r.Closed, &types, &priorities, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: scan report: %w", err)
	}
	if err := json.Unmarshal([]byte(types), &r.Types); err != nil {
		return nil, fmt.Errorf("audit: decode types: %w", err)
	}
	if err := json.Unmarshal([]byte(priorities), &r.Priorities); err != nil {
		return nil, fmt.Errorf("audit: decode priorities: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &r, nil
}

// HealthCheck verifies the database answers.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
