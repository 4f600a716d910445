// Package manifest persists structured archive metadata at creation
// time, backed by SQLite in the destination directory.
//
// The directory scan remains the source of truth for which archives
// exist; the manifest enriches listings with recorded sizes and digests
// and spares list/retention callers from re-parsing file names.
package manifest

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; a mismatched
// database must be removed and will be rebuilt from the directory.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("manifest schema version mismatch")

// Entry is one recorded archive.
type Entry struct {
	ID         int64
	Name       string
	Source     string
	CreatedAt  time.Time
	SizeBytes  int64
	DigestAlgo string
	Digest     string
}

// Store manages manifest persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the manifest database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != schemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to rebuild)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// Record inserts or replaces a row for a freshly built archive.
func (s *Store) Record(ctx context.Context, name, source string, createdAt time.Time, sizeBytes int64) (*Entry, error) {
	timestamp := createdAt.UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO archives (name, source, created_at, size_bytes)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET source=excluded.source,
             created_at=excluded.created_at, size_bytes=excluded.size_bytes`,
		name, source, timestamp, sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("record archive: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Entry{ID: id, Name: name, Source: source, CreatedAt: createdAt, SizeBytes: sizeBytes}, nil
}

// SetDigest attaches digest metadata to a recorded archive.
func (s *Store) SetDigest(ctx context.Context, name, algo, digest string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE archives SET digest_algo = ?, digest = ? WHERE name = ?",
		algo, digest, name)
	if err != nil {
		return fmt.Errorf("set digest: %w", err)
	}
	return nil
}

// Remove deletes rows for the named archives.
func (s *Store) Remove(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, "DELETE FROM archives WHERE name = ?", name); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// List returns all recorded archives, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, source, created_at, size_bytes,
                COALESCE(digest_algo, ''), COALESCE(digest, '')
         FROM archives ORDER BY created_at DESC, name DESC`)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Source, &createdAt,
			&entry.SizeBytes, &entry.DigestAlgo, &entry.Digest); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = parsed
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the entry for one archive name, or nil when unrecorded.
func (s *Store) Get(ctx context.Context, name string) (*Entry, error) {
	var entry Entry
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, source, created_at, size_bytes,
                COALESCE(digest_algo, ''), COALESCE(digest, '')
         FROM archives WHERE name = ?`, name).
		Scan(&entry.ID, &entry.Name, &entry.Source, &createdAt,
			&entry.SizeBytes, &entry.DigestAlgo, &entry.Digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
		entry.CreatedAt = parsed
	}
	return &entry, nil
}
