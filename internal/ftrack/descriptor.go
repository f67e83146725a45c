package ftrack

import "crypto/sha256"

// HashSize is the length in bytes of a record's content hash (SHA-256).
const HashSize = sha256.Size

// Descriptor is the read-only view of one file's identity metadata.
// Two implementations exist: a live descriptor backed by a file on disk
// (size and mtime captured at construction, hash and filesystem id computed
// lazily and cached), and RecordedFile, reconstructed from persisted fields
// and guaranteed never to touch the filesystem.
type Descriptor interface {
	// Path returns the canonical absolute path of the file.
	Path() string

	// Size returns the file size in bytes.
	Size() int64

	// ModTime returns the file's modification time in nanoseconds since
	// the Unix epoch.
	ModTime() int64

	// Hash returns the SHA-256 digest of the file's content. For a live
	// descriptor the first call streams the entire file; the result is
	// cached, so repeated calls are cheap and side-effect free.
	Hash() ([]byte, error)

	// FilesystemID returns an opaque integer identifying the filesystem
	// the file resides on. For a live descriptor the first call performs
	// a platform query; the result is cached.
	FilesystemID() (int64, error)
}

// MakeRecord converts a descriptor into the persisted field set.
// When includeHash is false the record's Hash is left nil, which avoids a
// full disk read on live descriptors when the hash is not needed (for
// example, path-only lookups). Records without a hash fail Validate and
// must not be inserted into a store.
func MakeRecord(d Descriptor, includeHash bool) (Record, error) {
	fsID, err := d.FilesystemID()
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Path:         d.Path(),
		Size:         d.Size(),
		MTime:        d.ModTime(),
		FilesystemID: fsID,
	}

	if includeHash {
		hash, err := d.Hash()
		if err != nil {
			return Record{}, err
		}
		rec.Hash = hash
	}

	return rec, nil
}
