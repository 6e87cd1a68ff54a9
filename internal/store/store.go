// Package store provides SQLite persistence for the signed-in session and
// small UI settings such as the last visited location.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/quill/internal/blog"
)

// ErrNoSession is returned by LoadSession when nobody is signed in.
var ErrNoSession = errors.New("no saved session")

// Store handles SQLite persistence. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Session is a persisted sign-in.
type Session struct {
	Token   string
	User    blog.User
	Created time.Time
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Each :memory: connection is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		user_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveSession replaces the stored session.
func (s *Store) SaveSession(sess Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if sess.Created.IsZero() {
		sess.Created = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO session (id, token, user_json, created_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			created_at = excluded.created_at
	`, sess.Token, string(userJSON), sess.Created.UTC())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LoadSession returns the stored session or ErrNoSession.
func (s *Store) LoadSession() (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sess     Session
		userJSON string
	)
	err := s.db.QueryRow(`SELECT token, user_json, created_at FROM session WHERE id = 1`).
		Scan(&sess.Token, &userJSON, &sess.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
		return Session{}, fmt.Errorf("decode session user: %w", err)
	}
	return sess, nil
}

// ClearSession forgets the signed-in user.
func (s *Store) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// SetSetting stores value under key.
func (s *Store) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Setting returns the value under key, or "" when unset.
func (s *Store) Setting(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

const keyLastLocation = "last_location"

// SetLastLocation remembers where the user was, for the next launch.
func (s *Store) SetLastLocation(loc string) error {
	return s.SetSetting(keyLastLocation, loc)
}

// LastLocation returns the remembered location, or "" on first launch.
func (s *Store) LastLocation() (string, error) {
	return s.Setting(keyLastLocation)
}
