/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
    key TEXT PRIMARY KEY,
    fields TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLite persists documents as one JSON row per key.
type SQLite struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(createDocumentsTable); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &SQLite{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLite) Load(ctx context.Context, key string) (Fields, bool, error) {
	var raw string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT fields FROM documents WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load document %s: %w", key, err)
	}

	var doc Fields
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("decode document %s: %w", key, err)
	}
	if doc == nil {
		doc = Fields{}
	}

	return doc, true, nil
}

func (s *SQLite) Save(ctx context.Context, key string, doc Fields) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO documents (key, fields, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at`,
		key,
		string(raw),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}

	return nil
}
