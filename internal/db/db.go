package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
	now func() time.Time
}

// New opens the database at path. It does not touch the schema; run Migrate
// once at deployment and use CheckSchema on request paths.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "create database dir %s", dir)
		}
	}

	dsn := "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "open database %s", path)
	}

	return &DB{DB: conn, now: func() time.Time { return time.Now().UTC() }}, nil
}

// SetClock replaces the time source used for row timestamps
func (db *DB) SetClock(now func() time.Time) {
	db.now = func() time.Time { return now().UTC() }
}

// Now returns the current time as seen by the store
func (db *DB) Now() time.Time {
	return db.now()
}

// GetSetting retrieves a setting value by key
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, errors.WithStack(err)
}

// SetSetting sets a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return errors.WithStack(err)
}

// parseTimestamp parses a timestamp produced by an aggregate expression, where
// the driver cannot see the column type and hands back text.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

type scanner interface {
	Scan(dest ...any) error
}
