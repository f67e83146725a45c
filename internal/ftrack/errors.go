package ftrack

import "errors"

// Sentinel errors for the failure modes callers are expected to branch on.
// Wrap these with fmt.Errorf("...: %w", Err...) so errors.Is still matches.
// Permission failures are not duplicated here — the engine and store match
// the platform's io/fs.ErrPermission directly.
var (
	// ErrNotFound reports a missing file, record, or store.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists reports a refusal to overwrite an existing store,
	// log file, or record.
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation reports malformed input: a partial record, a hash of
	// the wrong length, an unrecognized action/reason pair, or a configured
	// root that is not a directory.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity reports a store constraint violation, such as inserting
	// a record for a path that is already present.
	ErrIntegrity = errors.New("integrity violation")

	// ErrUnsupported reports a path that cannot be described, such as a
	// symlink or other non-regular file.
	ErrUnsupported = errors.New("unsupported file type")

	// ErrReadOnly reports a mutating call on a store opened read-only.
	ErrReadOnly = errors.New("store is read-only")
)
