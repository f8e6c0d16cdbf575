// Package db stores run telemetry in sqlite: one row per session, per control
// tick and per behavior transition.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSession is returned when a session ID is unknown.
var ErrNoSession = errors.New("no such session")

const pragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

type DB struct {
	*sql.DB
	path string
}

// NewDB opens (creating if needed) the database at path and applies any
// outstanding migrations.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file:"+path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db := &DB{DB: sqlDB, path: path}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string { return db.path }

// Session is one run of the car.
type Session struct {
	ID            string     `json:"session_id"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	StartBehavior string     `json:"start_behavior"`
	TuningJSON    string     `json:"tuning,omitempty"`
	Ticks         int64      `json:"ticks"`
}

// CreateSession inserts a new session row.
func (db *DB) CreateSession(ctx context.Context, s Session) error {
	tuning := s.TuningJSON
	if tuning == "" {
		tuning = "{}"
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_ns, start_behavior, tuning_json) VALUES (?, ?, ?, ?)`,
		s.ID, s.StartedAt.UnixNano(), s.StartBehavior, tuning,
	)
	if err != nil {
		return fmt.Errorf("failed to create session %s: %w", s.ID, err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (db *DB) EndSession(ctx context.Context, id string, at time.Time) error {
	res, err := db.ExecContext(ctx, `UPDATE sessions SET ended_ns = ? WHERE session_id = ?`, at.UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return nil
}

const sessionColumns = `s.session_id, s.started_ns, s.ended_ns, s.start_behavior, s.tuning_json,
	(SELECT COUNT(*) FROM ticks t WHERE t.session_id = s.session_id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		s       Session
		started int64
		ended   sql.NullInt64
	)
	if err := row.Scan(&s.ID, &started, &ended, &s.StartBehavior, &s.TuningJSON, &s.Ticks); err != nil {
		return Session{}, err
	}
	s.StartedAt = time.Unix(0, started).UTC()
	if ended.Valid {
		t := time.Unix(0, ended.Int64).UTC()
		s.EndedAt = &t
	}
	return s, nil
}

// Session returns one session by ID.
func (db *DB) Session(ctx context.Context, id string) (Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.session_id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	return s, nil
}

// Sessions returns the most recent sessions first. A non-positive limit
// returns all of them.
func (db *DB) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s ORDER BY s.started_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
