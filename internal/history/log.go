// Package history records every decision of a reconciliation pass to an
// append-only, write-once audit file. The format is CSV with a fixed
// header, optionally gzip-compressed and optionally age-encrypted at rest.
// The log is decoupled from the store's transaction: even if the store's
// commit is lost, the log already reflects what was attempted.
package history

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"ftrack-go/internal/ftrack"
)

var header = []string{"action", "reason", "path", "new_hash"}

// Options controls the output stream layering: compression innermost,
// encryption outermost (compressing after encrypting would be pointless).
type Options struct {
	// Compress wraps the output in gzip.
	Compress bool

	// Encryptor, when non-nil, encrypts the written stream.
	Encryptor ftrack.Encryptor
}

// Log is a write-once history file. It refuses to overwrite an existing
// file and refuses writes after Close.
type Log struct {
	file   *os.File
	enc    io.WriteCloser // age layer; nil when unencrypted
	gz     *gzip.Writer   // nil when uncompressed
	csv    *csv.Writer
	closed bool
}

// New creates a history log at path and writes the CSV header. Fails with
// ftrack.ErrAlreadyExists if anything exists at path — history is never
// overwritten.
func New(path string, opts Options) (*Log, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("history log at %s: %w", path, ftrack.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("creating history log: %w", err)
	}

	l := &Log{file: f}
	var w io.Writer = f

	if opts.Encryptor != nil {
		enc, err := opts.Encryptor.Encrypt(f)
		if err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("encrypting history log: %w", err)
		}
		l.enc = enc
		w = enc
	}

	if opts.Compress {
		l.gz = gzip.NewWriter(w)
		w = l.gz
	}

	l.csv = csv.NewWriter(w)
	if err := l.csv.Write(header); err != nil {
		l.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing history header: %w", err)
	}

	return l, nil
}

// Record appends one decision to the log. The (action, reason) pair must
// be recognized and hash is written only for new and update actions, which
// require a full-length digest. Entries are never mutated once written.
func (l *Log) Record(action ftrack.Action, reason ftrack.Reason, path string, hash []byte) error {
	if l.closed {
		return fmt.Errorf("history log is closed: %w", ftrack.ErrValidation)
	}
	if !ftrack.ValidPair(action, reason) {
		return fmt.Errorf("unrecognized action/reason pair %q/%q: %w", action, reason, ftrack.ErrValidation)
	}

	newHash := ""
	if action == ftrack.ActionNew || action == ftrack.ActionUpdate {
		if len(hash) != ftrack.HashSize {
			return fmt.Errorf("action %q requires a %d-byte hash, got %d: %w",
				action, ftrack.HashSize, len(hash), ftrack.ErrValidation)
		}
		newHash = hex.EncodeToString(hash)
	}

	if err := l.csv.Write([]string{string(action), string(reason), path, newHash}); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	l.csv.Flush()
	if err := l.csv.Error(); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	return nil
}

// Close flushes and closes every layer of the log. Idempotent; further
// Record calls fail after the first Close.
func (l *Log) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	l.csv.Flush()
	if err := l.csv.Error(); err != nil {
		firstErr = fmt.Errorf("flushing history log: %w", err)
	}

	if l.gz != nil {
		if err := l.gz.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing gzip layer: %w", err)
		}
	}
	if l.enc != nil {
		if err := l.enc.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing encryption layer: %w", err)
		}
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history log: %w", err)
	}

	return firstErr
}

// Compile-time check that Log implements the ftrack.Recorder interface.
var _ ftrack.Recorder = (*Log)(nil)

// Entry is one decoded history row.
type Entry struct {
	Action  string
	Reason  string
	Path    string
	NewHash string
}

// Decode reads a history log from r, transparently handling gzip. The
// caller removes any encryption layer first. The header row is validated
// and not returned.
func Decode(r io.Reader) ([]Entry, error) {
	br := bufio.NewReader(r)

	// gzip magic: 0x1f 0x8b
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("opening gzip layer: %w", err)
		}
		defer gz.Close()
		return decodeCSV(gz)
	}

	return decodeCSV(br)
}

func decodeCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading history header: %w", err)
	}
	if len(head) != len(header) {
		return nil, fmt.Errorf("malformed history header: %w", ftrack.ErrValidation)
	}

	var entries []Entry
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading history entry: %w", err)
		}
		entries = append(entries, Entry{
			Action:  row[0],
			Reason:  row[1],
			Path:    row[2],
			NewHash: row[3],
		})
	}
	return entries, nil
}
