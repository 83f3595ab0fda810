package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"wallet_go/internal/domain"
)

// KVStore persists preference strings in the SQLite metadata table.
type KVStore struct {
	db *sql.DB
}

// NewKVStore opens (or creates) the SQLite database at dbPath in WAL mode.
func NewKVStore(dbPath string) (*KVStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=2000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &KVStore{db: db}, nil
}

// Get returns the value stored under key, or "" when there is none.
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set upserts key with the current time as updated_at.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, value, time.Now().UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Setting returns the full row for key. ok is false when the key is absent.
func (s *KVStore) Setting(ctx context.Context, key string) (domain.Setting, bool, error) {
	st := domain.Setting{Key: key}
	err := s.db.QueryRowContext(ctx,
		"SELECT value, updated_at FROM metadata WHERE key = ?", key,
	).Scan(&st.Value, &st.UpdatedAtUnixM)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Setting{}, false, nil
	}
	if err != nil {
		return domain.Setting{}, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return st, true, nil
}

// Close closes the database connection.
func (s *KVStore) Close() error {
	return s.db.Close()
}
