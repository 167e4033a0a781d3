// Package history is the optional, config-gated diagnostics sink of
// SPEC_FULL.md section 10.5: an append-only record of connection
// lifecycle transitions and changed register values, kept for offline
// inspection only. It is never consulted to restore session state —
// that lives entirely in the in-memory Session/Engine actors.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed append-only event log.
type Store struct {
	db *sql.DB
}

// Open creates (if absent) and opens the sqlite database at path,
// ensuring its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS events (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id TEXT    NOT NULL,
	ts        INTEGER NOT NULL,
	kind      TEXT    NOT NULL,
	name      TEXT    NOT NULL DEFAULT '',
	value     REAL    NOT NULL DEFAULT 0,
	unit      TEXT    NOT NULL DEFAULT '',
	detail    TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS events_device_ts ON events(device_id, ts);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) insert(deviceID, kind, name string, value float64, unit, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO events (device_id, ts, kind, name, value, unit, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		deviceID, time.Now().UnixMilli(), kind, name, value, unit, detail,
	)
	if err != nil {
		return fmt.Errorf("history: insert %s event for %s: %w", kind, deviceID, err)
	}
	return nil
}

// RecordConnected logs a successful connect.
func (s *Store) RecordConnected(deviceID string) error {
	return s.insert(deviceID, "connected", "", 0, "", "")
}

// RecordDisconnected logs a session teardown, with the cause if any.
func (s *Store) RecordDisconnected(deviceID string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return s.insert(deviceID, "disconnected", "", 0, "", detail)
}

// RecordData logs a changed register's new display value.
func (s *Store) RecordData(deviceID, name string, value float64, unit string) error {
	return s.insert(deviceID, "data", name, value, unit, "")
}

// RecordError logs a poll or protocol error observed on the device.
func (s *Store) RecordError(deviceID string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return s.insert(deviceID, "error", "", 0, "", detail)
}

// Event is one row retrieved by Recent.
type Event struct {
	Timestamp time.Time
	Kind      string
	Name      string
	Value     float64
	Unit      string
	Detail    string
}

// Recent returns the most recent events for deviceID, newest first,
// bounded by limit. genvexctl itself only writes to the store and never
// calls Recent.
func (s *Store) Recent(deviceID string, limit int) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT ts, kind, name, value, unit, detail FROM events WHERE device_id = ? ORDER BY ts DESC, id DESC LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query recent for %s: %w", deviceID, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var tsMillis int64
		var ev Event
		if err := rows.Scan(&tsMillis, &ev.Kind, &ev.Name, &ev.Value, &ev.Unit, &ev.Detail); err != nil {
			return nil, fmt.Errorf("history: scan row for %s: %w", deviceID, err)
		}
		ev.Timestamp = time.UnixMilli(tsMillis)
		out = append(out, ev)
	}
	return out, rows.Err()
}
