package ftrack

import "fmt"

// Record is a single persisted row of the metadata store.
type Record struct {
	Path         string // canonical absolute path; unique key
	Hash         []byte // SHA-256 digest, exactly HashSize bytes
	Size         int64  // byte count, non-negative
	MTime        int64  // modification time, nanoseconds since the Unix epoch
	FilesystemID int64  // filesystem/device id at capture time
}

// Validate checks that the record is fully populated. The store refuses
// partial records: a row either carries every field or does not exist.
func (r Record) Validate() error {
	if r.Path == "" {
		return fmt.Errorf("record has empty path: %w", ErrValidation)
	}
	if len(r.Hash) != HashSize {
		return fmt.Errorf("record hash must be %d bytes, got %d: %w", HashSize, len(r.Hash), ErrValidation)
	}
	if r.Size < 0 {
		return fmt.Errorf("record has negative size %d: %w", r.Size, ErrValidation)
	}
	return nil
}

// RecordedFile is the store-backed Descriptor variant. It is built purely
// from persisted fields and never touches the filesystem; its hash and
// filesystem id are returned verbatim, never recomputed.
type RecordedFile struct {
	rec Record
}

// FromRecord reconstructs a descriptor from persisted fields.
// Fails with ErrValidation if the record is not fully populated.
func FromRecord(rec Record) (*RecordedFile, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &RecordedFile{rec: rec}, nil
}

func (f *RecordedFile) Path() string   { return f.rec.Path }
func (f *RecordedFile) Size() int64    { return f.rec.Size }
func (f *RecordedFile) ModTime() int64 { return f.rec.MTime }

func (f *RecordedFile) Hash() ([]byte, error)        { return f.rec.Hash, nil }
func (f *RecordedFile) FilesystemID() (int64, error) { return f.rec.FilesystemID, nil }

// Compile-time check that RecordedFile implements Descriptor.
var _ Descriptor = (*RecordedFile)(nil)
