package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/shortliffe/pkg/shortliffe/internalerr"
	"github.com/cognicore/shortliffe/pkg/shortliffe/kb"
	"github.com/cognicore/shortliffe/pkg/shortliffe/store"
)

// sqliteStore implements store.Repository on one SQLite table. Snapshots are
// kept in their JSON (or YAML) file form so an export is a plain SELECT.
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	// One writer at a time; a single connection keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS knowledge_bases (
	name TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// List implements store.Repository.
func (s *sqliteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM knowledge_bases ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Load implements store.Repository.
func (s *sqliteStore) Load(ctx context.Context, name string) (kb.Snapshot, error) {
	name, err := store.NormalizeName(name)
	if err != nil {
		return kb.Snapshot{}, err
	}

	var data []byte
	err = s.db.QueryRowContext(ctx, `SELECT data FROM knowledge_bases WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return kb.Snapshot{}, store.NotFound(name)
	}
	if err != nil {
		return kb.Snapshot{}, fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	return store.Decode(name, data)
}

// Save implements store.Repository.
func (s *sqliteStore) Save(ctx context.Context, name string, snap kb.Snapshot) (string, error) {
	name, err := store.NormalizeName(name)
	if err != nil {
		return "", err
	}
	data, err := store.Encode(name, snap)
	if err != nil {
		return "", err
	}

	const stmt = `
INSERT INTO knowledge_bases (name, data, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	data=excluded.data,
	updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, name, data, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return "", fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	return name, nil
}

// Delete implements store.Repository.
func (s *sqliteStore) Delete(ctx context.Context, name string) error {
	name, err := store.NormalizeName(name)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("%w: %w", internalerr.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.NotFound(name)
	}
	return nil
}
