package fs

import (
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"ftrack-go/internal/ftrack"
)

// OSFilesystem is the real filesystem implementation of ftrack.Filesystem.
// It performs actual filesystem operations using the os package.
type OSFilesystem struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystem creates a filesystem manager that operates on the real
// filesystem. Paths matching one of the ignore patterns are skipped during
// walks.
func NewOSFilesystem(ignorePatterns []string) *OSFilesystem {
	return &OSFilesystem{
		ignore: NewIgnoreMatcher(ignorePatterns),
	}
}

// Describe builds a live descriptor for the regular file at path.
// Size and mtime are captured now; hash and filesystem id are computed on
// first access and cached.
func (m *OSFilesystem) Describe(path string) (ftrack.Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no file at %s: %w", abs, ftrack.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}

	// Symlinks are excluded: following them gives a file two identities
	// and risks traversal cycles.
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("path is a symlink: %s: %w", abs, ftrack.ErrUnsupported)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s: %w", abs, ftrack.ErrNotFound)
	}

	return &LiveFile{
		path:  abs,
		size:  info.Size(),
		mtime: info.ModTime().UnixNano(),
	}, nil
}

// ExistsRegular reports whether path refers to an existing regular file.
// Symlinks do not count, even when their target is a regular file.
func (m *OSFilesystem) ExistsRegular(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// IsDir reports whether path refers to an existing directory.
func (m *OSFilesystem) IsDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FilesystemID returns the filesystem id of the given path.
func (m *OSFilesystem) FilesystemID(path string) (int64, error) {
	return filesystemID(path)
}

// Walk visits every regular file under root. Directory read errors are
// routed to fail and the walk continues past them; an error from visit
// aborts the walk.
func (m *OSFilesystem) Walk(root string, visit func(path string) error, fail func(path string, err error)) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			fail(p, err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		// Entries can be symlinks, devices, sockets. Only regular files
		// carry trackable identity.
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", p, err)
		}
		if m.ignore.Match(rel) {
			return nil
		}

		return visit(p)
	})
}

// LiveFile is the disk-backed Descriptor variant. Size and mtime are fixed
// at construction; the hash and filesystem id are computed lazily on first
// access and cached for the descriptor's lifetime.
type LiveFile struct {
	path  string
	size  int64
	mtime int64

	hash []byte
	fsID *int64
}

func (f *LiveFile) Path() string   { return f.path }
func (f *LiveFile) Size() int64    { return f.size }
func (f *LiveFile) ModTime() int64 { return f.mtime }

// Hash streams the file through SHA-256 on first call and caches the
// digest. The read uses a bounded buffer, so peak memory does not depend
// on file size. The handle is released on every exit path.
func (f *LiveFile) Hash() ([]byte, error) {
	if f.hash != nil {
		return f.hash, nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for hashing: %w", f.path, err)
	}
	defer file.Close()

	sha := sha256.New()
	if _, err := io.Copy(sha, file); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", f.path, err)
	}

	f.hash = sha.Sum(nil)
	return f.hash, nil
}

// FilesystemID queries the platform on first call and caches the result.
func (f *LiveFile) FilesystemID() (int64, error) {
	if f.fsID != nil {
		return *f.fsID, nil
	}

	id, err := filesystemID(f.path)
	if err != nil {
		return 0, err
	}

	f.fsID = &id
	return id, nil
}

// Compile-time checks.
var (
	_ ftrack.Filesystem = (*OSFilesystem)(nil)
	_ ftrack.Descriptor = (*LiveFile)(nil)
)
