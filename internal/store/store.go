// Package store persists withdrawal history in SQLite, grouped into daily
// sessions.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultMaxSessions bounds history retention: oldest sessions beyond this
// are dropped, session by session, never record by record.
const DefaultMaxSessions = 100

// Store handles all database operations
type Store struct {
	db          *sql.DB
	maxSessions int
}

// New creates a new Store with SQLite backend
func New(dbPath string, maxSessions int) (*Store, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, maxSessions: maxSessions}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		date TEXT PRIMARY KEY,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS withdrawals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_date TEXT NOT NULL REFERENCES sessions(date) ON DELETE CASCADE,
		name TEXT NOT NULL,
		profile_url TEXT,
		withdrawn_at DATETIME NOT NULL,
		age TEXT,
		run_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawals_session ON withdrawals(session_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SessionDate renders t as the calendar-day session key.
func SessionDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// AddWithdrawal appends one record, merging it into the existing same-day
// session if present, then evicts sessions beyond the retention cap.
func (s *Store) AddWithdrawal(rec Record) error {
	if rec.WithdrawnAt.IsZero() {
		rec.WithdrawnAt = time.Now()
	}
	date := SessionDate(rec.WithdrawnAt)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT OR IGNORE INTO sessions (date) VALUES (?)`, date); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		INSERT INTO withdrawals (session_date, name, profile_url, withdrawn_at, age, run_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, date, rec.Name, rec.ProfileURL, rec.WithdrawnAt, rec.Age, rec.RunID); err != nil {
		return err
	}

	// FIFO eviction by session
	if _, err := tx.Exec(`
		DELETE FROM withdrawals WHERE session_date IN (
			SELECT date FROM sessions ORDER BY date DESC LIMIT -1 OFFSET ?
		)
	`, s.maxSessions); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM sessions WHERE date IN (
			SELECT date FROM sessions ORDER BY date DESC LIMIT -1 OFFSET ?
		)
	`, s.maxSessions); err != nil {
		return err
	}

	return tx.Commit()
}

// CurrentSessionDate returns today's session key.
func (s *Store) CurrentSessionDate() string {
	return SessionDate(time.Now())
}

// Sessions returns up to limit sessions, newest first, each with its records
// in withdrawal order.
func (s *Store) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = s.maxSessions
	}

	rows, err := s.db.Query(`SELECT date FROM sessions ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.Date); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sessions {
		recs, err := s.sessionRecords(sessions[i].Date)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", sessions[i].Date, err)
		}
		sessions[i].Records = recs
	}

	return sessions, nil
}

// SessionCount returns how many sessions are retained.
func (s *Store) SessionCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

func (s *Store) sessionRecords(date string) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT name, profile_url, withdrawn_at, age, run_id
		FROM withdrawals WHERE session_date = ? ORDER BY id
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.ProfileURL, &r.WithdrawnAt, &r.Age, &r.RunID); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
