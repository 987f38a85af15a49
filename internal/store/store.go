// Package store persists application state as JSON documents in a sqlite
// key/value table. Each JSON key is wrapped in a versioned envelope so the
// shape can change without breaking old databases; the API credential is
// stored as a raw string.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"gemchat/internal/chat"
	"gemchat/internal/memory"
)

const (
	KeyAPIKey   = "api-key"
	KeySessions = "sessions"
	KeyTheme    = "theme"
	KeyMemories = "memories"
)

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			doc TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) put(key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO state(key, doc) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET doc=excluded.doc
	`, key, string(doc))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc string
	err := s.db.QueryRow(`SELECT doc FROM state WHERE key = ?`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return []byte(doc), true, nil
}

func (s *Store) delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Reset drops every persisted key.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM state`); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return nil
}

func (s *Store) SaveAPIKey(key string) error {
	return s.put(KeyAPIKey, []byte(key))
}

// LoadAPIKey returns the stored credential, or "" when none is set.
func (s *Store) LoadAPIKey() (string, error) {
	doc, ok, err := s.get(KeyAPIKey)
	if err != nil || !ok {
		return "", err
	}
	return string(doc), nil
}

func (s *Store) DeleteAPIKey() error {
	return s.delete(KeyAPIKey)
}

func (s *Store) SaveSessions(sessions []chat.ChatSession) error {
	doc, err := wrap(sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	return s.put(KeySessions, doc)
}

func (s *Store) LoadSessions() ([]chat.ChatSession, error) {
	doc, ok, err := s.get(KeySessions)
	if err != nil || !ok {
		return nil, err
	}
	data, err := unwrap(doc)
	if err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	var sessions []chat.ChatSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}
	return sessions, nil
}

func (s *Store) DeleteSessions() error {
	return s.delete(KeySessions)
}

func (s *Store) SaveMemories(items []memory.Item) error {
	doc, err := wrap(items)
	if err != nil {
		return fmt.Errorf("encode memories: %w", err)
	}
	return s.put(KeyMemories, doc)
}

func (s *Store) LoadMemories() ([]memory.Item, error) {
	doc, ok, err := s.get(KeyMemories)
	if err != nil || !ok {
		return nil, err
	}
	data, err := unwrap(doc)
	if err != nil {
		return nil, fmt.Errorf("decode memories: %w", err)
	}
	var items []memory.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode memories: %w", err)
	}
	return items, nil
}

func (s *Store) DeleteMemories() error {
	return s.delete(KeyMemories)
}

func (s *Store) SaveTheme(theme string) error {
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return fmt.Errorf("unknown theme %q", theme)
	}
	doc, err := wrap(theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	return s.put(KeyTheme, doc)
}

// LoadTheme returns the persisted theme preference, defaulting to system.
func (s *Store) LoadTheme() (string, error) {
	doc, ok, err := s.get(KeyTheme)
	if err != nil {
		return ThemeSystem, err
	}
	if !ok {
		return ThemeSystem, nil
	}
	data, err := unwrap(doc)
	if err != nil {
		return ThemeSystem, fmt.Errorf("decode theme: %w", err)
	}
	var theme string
	if err := json.Unmarshal(data, &theme); err != nil {
		return ThemeSystem, fmt.Errorf("decode theme: %w", err)
	}
	switch theme {
	case ThemeLight, ThemeDark, ThemeSystem:
		return theme, nil
	default:
		return ThemeSystem, nil
	}
}
