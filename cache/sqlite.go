package cache

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"ghprojects/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore is a Store backed by a local SQLite database, the durable
// analog of a browser's local storage.
type SQLiteStore struct {
	conn *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// key/value schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	store := &SQLiteStore{conn: conn}
	if err := store.init(); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info("Cache store opened", zap.String("path", path))
	return store, nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The schema is assumed to
// be in place.
func NewSQLiteStoreFromDB(conn *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{conn: conn}
}

func (s *SQLiteStore) init() error {
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.conn.Get(&value, "SELECT value FROM kv_entries WHERE key = ?", key)
	if err != nil {
		return "", false
	}
	return value, true
}

func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT INTO kv_entries (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(key string) {
	if _, err := s.conn.Exec("DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		logger.Warn("Failed to remove cache entry", zap.Error(err), zap.String("key", key))
	}
}

func (s *SQLiteStore) Keys(prefix string) []string {
	var keys []string
	err := s.conn.Select(&keys, "SELECT key FROM kv_entries WHERE key LIKE ? || '%'", prefix)
	if err != nil {
		logger.Warn("Failed to enumerate cache keys", zap.Error(err), zap.String("prefix", prefix))
		return nil
	}
	return keys
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
