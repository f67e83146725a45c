package ftrack

// Filesystem abstracts the disk operations the engine needs, so tests can
// substitute a fake and the engine never imports os directly.
type Filesystem interface {
	// Describe builds a live descriptor for the regular file at path.
	// Fails with ErrNotFound if path does not refer to a regular file and
	// ErrUnsupported if it is a symlink.
	Describe(path string) (Descriptor, error)

	// ExistsRegular reports whether path refers to an existing regular
	// file (symlinks excluded).
	ExistsRegular(path string) bool

	// FilesystemID returns the filesystem id of the given path.
	FilesystemID(path string) (int64, error)

	// IsDir reports whether path refers to an existing directory.
	IsDir(path string) bool

	// Walk visits every regular file under root, depth-first. Errors
	// reading a directory or entry are passed to fail and walking
	// continues; an error returned by visit aborts the walk.
	Walk(root string, visit func(path string) error, fail func(path string, err error)) error
}
