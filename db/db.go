package db

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"termpal/model"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

// New opens (creating if needed) the history database at path. Lines
// recorded here outlive the process.
func New(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return open(path)
}

// NewSession opens an in-memory history that is gone once it is closed.
func NewSession() (*DB, error) {
	return open(":memory:")
}

func open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: the scheduler goroutine and the prompt may both record
	// lines, and each :memory: connection is a separate database.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) migrate() error {
	_, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			line TEXT NOT NULL,
			session_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_history_line ON history(line);
		CREATE INDEX IF NOT EXISTS idx_history_last_used ON history(last_used_at);
	`)
	return err
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Recent returns up to limit entries, most recently used first. A limit of
// zero or less returns everything.
func (d *DB) Recent(limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`
		SELECT id, line, session_id, created_at, last_used_at
		FROM history
		ORDER BY last_used_at DESC NULLS LAST, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var lastUsed sql.NullTime
		if err := rows.Scan(&e.ID, &e.Line, &e.SessionID, &e.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			e.LastUsedAt = &lastUsed.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add records a line. A line already in the history is moved to the front
// instead of being stored twice.
func (d *DB) Add(line, sessionID string) (int64, error) {
	normalized := strings.TrimSpace(line)

	id, err := d.find(normalized)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, d.UpdateLastUsed(id)
	}

	result, err := d.conn.Exec(
		`INSERT INTO history (line, session_id, last_used_at) VALUES (?, ?, ?)`,
		normalized, sessionID, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) Delete(id int64) error {
	_, err := d.conn.Exec(`DELETE FROM history WHERE id = ?`, id)
	return err
}

func (d *DB) UpdateLastUsed(id int64) error {
	_, err := d.conn.Exec(
		`UPDATE history SET last_used_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	return err
}

// find returns the id of an entry with exactly this line, or 0.
func (d *DB) find(line string) (int64, error) {
	var id int64
	err := d.conn.QueryRow(`SELECT id FROM history WHERE line = ? LIMIT 1`, line).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}
