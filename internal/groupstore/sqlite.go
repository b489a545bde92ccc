// Package groupstore records which notification group belongs to each
// (user, bot) address pair. The registry is what makes group creation
// idempotent: a repeated create request for a known pair returns the stored
// id instead of allocating a second group.
package groupstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultDirMode  = 0o755
	defaultFileMode = 0o600
)

var ErrNotFound = errors.New("groupstore: no group for pair")

type Store struct {
	path string
	db   *sql.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("groupstore: db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, fmt.Errorf("groupstore: create dir: %w", err)
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("groupstore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{path: path, db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := os.Chmod(path, defaultFileMode); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS groups (
    user_addr  TEXT NOT NULL,
    bot_addr   TEXT NOT NULL,
    group_id   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (user_addr, bot_addr)
)`)
	if err != nil {
		return fmt.Errorf("groupstore: migrate: %w", err)
	}
	return nil
}

// Lookup returns the group id stored for the pair, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, userAddr, botAddr string) (string, error) {
	var groupID string
	err := s.db.QueryRowContext(ctx,
		`SELECT group_id FROM groups WHERE user_addr = ? AND bot_addr = ?`,
		normalize(userAddr), normalize(botAddr),
	).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("groupstore: lookup: %w", err)
	}
	return groupID, nil
}

// Save records the group id for the pair. Saving the same pair again
// overwrites, which keeps the registry consistent if a group is ever
// re-provisioned out of band.
func (s *Store) Save(ctx context.Context, userAddr, botAddr, groupID string) error {
	if groupID == "" {
		return errors.New("groupstore: group id is required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO groups (user_addr, bot_addr, group_id, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_addr, bot_addr) DO UPDATE SET group_id = excluded.group_id`,
		normalize(userAddr), normalize(botAddr), groupID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("groupstore: save: %w", err)
	}
	return nil
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
