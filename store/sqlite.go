package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteStore persists each collection as one row in a local SQLite file.
// It is the default backend: durable across restarts on a single host.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite creates or opens the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	// Immediate transactions take the write lock at BEGIN, so a writer in
	// another process shows up as SQLITE_BUSY before anything is read.
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer and the version check
	// below must run against the same connection as the update.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context, collection string) (Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return Snapshot{}, err
	}

	var (
		version int64
		payload string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM record_collections WHERE name = ?`, collection,
	).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, unavailable("read "+collection, err)
	}

	records, err := unmarshalPayload([]byte(payload))
	if err != nil {
		return Snapshot{}, unavailable("decode "+collection, err)
	}
	return Snapshot{Records: records, Version: Version(strconv.FormatInt(version, 10))}, nil
}

func (s *SQLiteStore) WriteAll(ctx context.Context, collection string, records []json.RawMessage, expected Version) (Version, error) {
	if err := checkCollection(collection); err != nil {
		return "", err
	}
	payload, err := marshalPayload(records)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", sqliteWriteError("begin "+collection, err)
	}
	defer tx.Rollback()

	var current int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM record_collections WHERE name = ?`, collection,
	).Scan(&current)
	exists := true
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return "", sqliteWriteError("read version "+collection, err)
	}

	if !exists && expected != "" {
		return "", ErrConflict
	}
	if exists && Version(strconv.FormatInt(current, 10)) != expected {
		return "", ErrConflict
	}

	next := current + 1
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE record_collections SET version = ?, payload = ?, updated_at = ? WHERE name = ? AND version = ?`,
			next, string(payload), now, collection, current)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO record_collections (name, version, payload, updated_at) VALUES (?, ?, ?, ?)`,
			collection, next, string(payload), now)
	}
	if err != nil {
		return "", sqliteWriteError("write "+collection, err)
	}
	if err := tx.Commit(); err != nil {
		return "", sqliteWriteError("commit "+collection, err)
	}
	return Version(strconv.FormatInt(next, 10)), nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// sqliteWriteError reports lock contention from another connection as
// ErrConflict so callers replay their read-modify-write.
func sqliteWriteError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
	}
	return unavailable(op, err)
}
