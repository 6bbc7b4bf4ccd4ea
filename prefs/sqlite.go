package prefs

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/lixenwraith/soundpool/log"
	"github.com/lixenwraith/soundpool/prefs/migrations"
)

// SQLite stores preferences in a database file, with a change history
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and migrates it
func OpenSQLite(path string) (*SQLite, error) {
	log.Debug(log.CatDB, "Opening preference database", "path", path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			log.ErrorErr(log.CatDB, "Pragma failed", err, "pragma", pragma)
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		log.ErrorErr(log.CatDB, "Failed to run migrations", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info(log.CatDB, "Preference database ready", "path", path)
	return &SQLite{db: db, path: path}, nil
}

// GetFloat returns def when the key is absent or the read fails
func (s *SQLite) GetFloat(key string, def float64) float64 {
	var v float64
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def
	}
	if err != nil {
		log.ErrorErr(log.CatDB, "Preference read failed", err, "key", key)
		return def
	}
	return v
}

func (s *SQLite) SetFloat(key string, value float64) error {
	if err := checkEntry(key, value); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store preference %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Keys() []string {
	rows, err := s.db.Query(`SELECT key FROM preferences ORDER BY key`)
	if err != nil {
		log.ErrorErr(log.CatDB, "Preference key scan failed", err)
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return keys
		}
		keys = append(keys, k)
	}
	return keys
}

// Change is one recorded value of a preference
type Change struct {
	Value float64
	At    time.Time
}

// History returns up to limit past values of key, newest first
func (s *SQLite) History(key string, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT value, changed_at FROM preference_history WHERE key = ? ORDER BY id DESC LIMIT ?`,
		key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer rows.Close()

	var out []Change
	for rows.Next() {
		var (
			c  Change
			at int64
		)
		if err := rows.Scan(&c.Value, &at); err != nil {
			return nil, err
		}
		c.At = time.Unix(at, 0)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	log.Debug(log.CatDB, "Closing preference database", "path", s.path)
	err := s.db.Close()
	s.db = nil
	return err
}
