package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/mattn/go-sqlite3"

	"ftrack-go/internal/database/migrations"
	"ftrack-go/internal/ftrack"
)

// SQLiteStore implements the ftrack.Store interface using SQLite.
// Mutations run inside a transaction begun lazily on the first mutating
// call; nothing is durable until Commit. Reads issued while a transaction
// is open go through it, so a pass observes its own buffered changes.
type SQLiteStore struct {
	db       *sql.DB
	tx       *sql.Tx
	path     string
	readonly bool
	closed   bool
	logger   ftrack.Logger
}

const recordColumns = "path, hash, size, mtime, fs_id"

// Create bootstraps a brand-new empty store at path and returns it open
// in read-write mode. Fails with ftrack.ErrAlreadyExists if anything
// already exists at path.
func Create(path string, logger ftrack.Logger) (*SQLiteStore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("store path %s: %w", path, ftrack.ErrAlreadyExists)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat store path: %w", err)
	}

	db, err := openConnection(path, false)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("initializing store schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Open connects to an existing store. Fails with ftrack.ErrNotFound if no
// file exists at path. Read-only stores reject every mutating call with
// ftrack.ErrReadOnly.
func Open(path string, readonly bool, logger ftrack.Logger) (*SQLiteStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("store path %s: %w", path, ftrack.ErrNotFound)
		}
		return nil, fmt.Errorf("stat store path: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("store path %s is a directory: %w", path, ftrack.ErrNotFound)
	}

	db, err := openConnection(path, readonly)
	if err != nil {
		return nil, err
	}

	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store schema out of date: %w", err)
	}

	return &SQLiteStore{db: db, path: path, readonly: readonly, logger: logger}, nil
}

// openConnection opens a SQLite connection. Read-only mode is enforced by
// SQLite itself via the mode=ro URI parameter, in addition to the Go-side
// guard in mut.
func openConnection(path string, readonly bool) (*sql.DB, error) {
	dsn := path
	if readonly {
		dsn = "file:" + path + "?mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return db, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// q returns the open transaction when one exists, so reads observe
// buffered mutations, and the plain connection otherwise.
func (s *SQLiteStore) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// mut returns the transaction mutations run in, beginning one if needed.
func (s *SQLiteStore) mut() (*sql.Tx, error) {
	if s.readonly {
		return nil, fmt.Errorf("mutating a read-only store: %w", ftrack.ErrReadOnly)
	}
	if s.tx == nil {
		tx, err := s.db.Begin()
		if err != nil {
			return nil, fmt.Errorf("starting transaction: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

// Lookup returns the record for path, or nil if absent.
func (s *SQLiteStore) Lookup(path string) (*ftrack.Record, error) {
	row := s.q().QueryRow("SELECT "+recordColumns+" FROM files WHERE path = ?", path)

	var rec ftrack.Record
	err := row.Scan(&rec.Path, &rec.Hash, &rec.Size, &rec.MTime, &rec.FilesystemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("looking up record: %w", err)
	}
	return &rec, nil
}

// Exists reports whether a record for path is present.
func (s *SQLiteStore) Exists(path string) (bool, error) {
	row := s.q().QueryRow("SELECT 1 FROM files WHERE path = ?", path)

	var one int
	err := row.Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("checking record existence: %w", err)
	}
	return true, nil
}

// Insert adds a new, fully-populated record.
func (s *SQLiteStore) Insert(rec ftrack.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := s.mut()
	if err != nil {
		return err
	}

	_, err = tx.Exec("INSERT INTO files ("+recordColumns+") VALUES (?, ?, ?, ?, ?)",
		rec.Path, rec.Hash, rec.Size, rec.MTime, rec.FilesystemID)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("record already exists for %s: %w", rec.Path, ftrack.ErrIntegrity)
		}
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// Update replaces the record whose path matches rec.Path.
func (s *SQLiteStore) Update(rec ftrack.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := s.mut()
	if err != nil {
		return err
	}

	res, err := tx.Exec("UPDATE files SET hash = ?, size = ?, mtime = ?, fs_id = ? WHERE path = ?",
		rec.Hash, rec.Size, rec.MTime, rec.FilesystemID, rec.Path)
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating record: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("no record to update for %s: %w", rec.Path, ftrack.ErrNotFound)
	}
	return nil
}

// Delete removes the record for path.
func (s *SQLiteStore) Delete(path string) error {
	tx, err := s.mut()
	if err != nil {
		return err
	}

	res, err := tx.Exec("DELETE FROM files WHERE path = ?", path)
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("no record to delete for %s: %w", path, ftrack.ErrNotFound)
	}
	return nil
}

// All enumerates every record in unspecified order. The cursor is bound to
// the open connection and must be closed before the store.
func (s *SQLiteStore) All() (ftrack.Cursor, error) {
	rows, err := s.q().Query("SELECT " + recordColumns + " FROM files")
	if err != nil {
		return nil, fmt.Errorf("enumerating records: %w", err)
	}
	return &recordCursor{rows: rows}, nil
}

// FindByHash enumerates records whose hash equals the given digest.
func (s *SQLiteStore) FindByHash(hash []byte) (ftrack.Cursor, error) {
	if len(hash) != ftrack.HashSize {
		return nil, fmt.Errorf("hash must be %d bytes, got %d: %w", ftrack.HashSize, len(hash), ftrack.ErrValidation)
	}

	rows, err := s.q().Query("SELECT "+recordColumns+" FROM files WHERE hash = ?", hash)
	if err != nil {
		return nil, fmt.Errorf("finding records by hash: %w", err)
	}
	return &recordCursor{rows: rows}, nil
}

// FindByPattern enumerates records whose path matches the regular
// expression. SQLite has no native regexp support, so the expression is
// evaluated per row as the cursor advances.
func (s *SQLiteStore) FindByPattern(pattern string) (ftrack.Cursor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad path pattern %q: %v: %w", pattern, err, ftrack.ErrValidation)
	}

	rows, err := s.q().Query("SELECT " + recordColumns + " FROM files")
	if err != nil {
		return nil, fmt.Errorf("finding records by pattern: %w", err)
	}
	return &recordCursor{rows: rows, filter: re}, nil
}

// Commit makes all buffered mutations durable.
func (s *SQLiteStore) Commit() error {
	if s.tx == nil {
		return nil
	}
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("committing store: %w", err)
	}
	s.tx = nil
	return nil
}

// ReadOnly reports whether the store rejects mutations.
func (s *SQLiteStore) ReadOnly() bool {
	return s.readonly
}

// Path returns the store's file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// InTransaction reports whether there are uncommitted mutations.
func (s *SQLiteStore) InTransaction() bool {
	return s.tx != nil
}

// Close releases the store. Uncommitted mutations are rolled back with a
// warning — the caller may intentionally discard work, so this is not an
// error. Idempotent.
func (s *SQLiteStore) Close() error {
	if s.closed {
		return nil
	}

	if s.tx != nil {
		s.logger.Warn("closing store with uncommitted changes", "path", s.path)
		s.tx.Rollback()
		s.tx = nil
	}

	err := s.db.Close()
	s.closed = true
	if err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// recordCursor adapts sql.Rows to ftrack.Cursor, optionally filtering
// rows through a path regexp.
type recordCursor struct {
	rows   *sql.Rows
	rec    ftrack.Record
	filter *regexp.Regexp
	err    error
}

func (c *recordCursor) Next() bool {
	if c.err != nil {
		return false
	}
	for c.rows.Next() {
		var rec ftrack.Record
		if err := c.rows.Scan(&rec.Path, &rec.Hash, &rec.Size, &rec.MTime, &rec.FilesystemID); err != nil {
			c.err = fmt.Errorf("scanning record: %w", err)
			return false
		}
		if c.filter != nil && !c.filter.MatchString(rec.Path) {
			continue
		}
		c.rec = rec
		return true
	}
	c.err = c.rows.Err()
	return false
}

func (c *recordCursor) Record() ftrack.Record { return c.rec }
func (c *recordCursor) Err() error            { return c.err }
func (c *recordCursor) Close() error          { return c.rows.Close() }

// Compile-time check that SQLiteStore implements the ftrack.Store interface.
var _ ftrack.Store = (*SQLiteStore)(nil)
