package ftrack

// Cursor is a lazy, single-pass sequence of records bound to one open
// statement on the store's connection. It follows the sql.Rows protocol:
// call Next until it returns false, then check Err. A cursor must not be
// used after the backing store is closed.
type Cursor interface {
	// Next advances to the next record, returning false when the sequence
	// is exhausted or an error occurred.
	Next() bool

	// Record returns the current record. Only valid after a true Next.
	Record() Record

	// Err returns the error, if any, that stopped iteration.
	Err() error

	// Close releases the cursor. Safe to call more than once.
	Close() error
}

// Store is the persistent, path-keyed table of file records.
// Mutations are buffered in a transaction and become durable only on
// Commit; closing with uncommitted mutations discards them with a warning.
type Store interface {
	// Lookup returns the record for path, or nil if absent. Absence is
	// not an error.
	Lookup(path string) (*Record, error)

	// Exists reports whether a record for path is present.
	Exists(path string) (bool, error)

	// Insert adds a new record. Fails with ErrReadOnly in read-only mode,
	// ErrValidation if the record is partial, and ErrIntegrity if the
	// path is already present.
	Insert(rec Record) error

	// Update replaces the record whose path matches rec.Path. Fails with
	// ErrReadOnly in read-only mode and ErrNotFound if the path is absent.
	Update(rec Record) error

	// Delete removes the record for path. Fails with ErrReadOnly in
	// read-only mode and ErrNotFound if the path is absent.
	Delete(path string) error

	// All enumerates every record in unspecified order.
	All() (Cursor, error)

	// FindByHash enumerates records whose hash equals the given digest.
	// The digest must be exactly HashSize bytes or the call fails with
	// ErrValidation. Zero matches yield an empty cursor, not an error.
	FindByHash(hash []byte) (Cursor, error)

	// FindByPattern enumerates records whose path matches the regular
	// expression, evaluated per row.
	FindByPattern(pattern string) (Cursor, error)

	// Commit makes all buffered mutations durable. A no-op when nothing
	// is pending.
	Commit() error

	// ReadOnly reports whether the store rejects mutations.
	ReadOnly() bool

	// Close releases the store. Pending mutations are discarded with a
	// warning. Idempotent.
	Close() error
}
