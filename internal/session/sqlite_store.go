package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod/lib/proto"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// The service runs one platform account, so the jar table holds a
// single row under this profile key.
const defaultProfile = "platform"

// SQLiteStore persists the cookie jar in SQLite. Useful on hosts where
// a database file survives restarts more reliably than scratch files.
type SQLiteStore struct {
	db       *sql.DB
	logger   *slog.Logger
	isMemory bool
}

// NewSQLiteStore opens (or creates) the store at dbPath.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	var connStr string
	isMemory := dbPath == ":memory:"

	if isMemory {
		connStr = "file::memory:?cache=shared&_timeout=5000&_busy_timeout=5000"
		logger.Info("using in-memory SQLite session store")
	} else {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
		connStr = dbPath + "?_journal=WAL&_timeout=5000&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{db: db, logger: logger, isMemory: isMemory}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("SQLite session store initialized", "path", dbPath, "in_memory", isMemory)
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cookie_jars (
		profile TEXT PRIMARY KEY,
		cookies_json TEXT NOT NULL DEFAULT '[]',
		saved_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the stored jar, or (nil, nil) when absent or unreadable.
func (s *SQLiteStore) Load() (*CookieJar, error) {
	var cookiesJSON, savedAtStr string
	err := s.db.QueryRow(
		"SELECT cookies_json, saved_at FROM cookie_jars WHERE profile = ?",
		defaultProfile,
	).Scan(&cookiesJSON, &savedAtStr)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cookie jar: %w", err)
	}

	var cookies []*proto.NetworkCookie
	if err := json.Unmarshal([]byte(cookiesJSON), &cookies); err != nil {
		s.logger.Warn("stored cookie jar is unreadable, ignoring", "error", err)
		return nil, nil
	}
	if len(cookies) == 0 {
		return nil, nil
	}

	jar := &CookieJar{Cookies: cookies}
	jar.SavedAt, _ = time.Parse(time.RFC3339, savedAtStr)
	return jar, nil
}

// Save upserts the jar.
func (s *SQLiteStore) Save(jar *CookieJar) error {
	cookiesJSON, err := json.Marshal(jar.Cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	savedAt := jar.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	query := `
	INSERT INTO cookie_jars (profile, cookies_json, saved_at)
	VALUES (?, ?, ?)
	ON CONFLICT(profile) DO UPDATE SET
		cookies_json = excluded.cookies_json,
		saved_at = excluded.saved_at
	`
	if _, err := s.db.Exec(query, defaultProfile, string(cookiesJSON), savedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to save cookie jar: %w", err)
	}

	s.logger.Debug("cookie jar persisted", "cookies", len(jar.Cookies))
	return nil
}

// Clear drops the stored jar.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM cookie_jars WHERE profile = ?", defaultProfile); err != nil {
		return fmt.Errorf("failed to clear cookie jar: %w", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	if !s.isMemory {
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Warn("failed to checkpoint WAL before close", "error", err)
		}
	}
	return s.db.Close()
}
