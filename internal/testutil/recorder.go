package testutil

import (
	"fmt"

	"ftrack-go/internal/ftrack"
)

// RecordedEntry is one decision captured by a MemoryRecorder.
type RecordedEntry struct {
	Action ftrack.Action
	Reason ftrack.Reason
	Path   string
	Hash   []byte
}

// MemoryRecorder is an in-memory ftrack.Recorder. It enforces the same
// action/reason pairing as the real history log, so engine tests catch
// malformed entries.
type MemoryRecorder struct {
	Entries []RecordedEntry
}

var _ ftrack.Recorder = (*MemoryRecorder)(nil)

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(action ftrack.Action, reason ftrack.Reason, path string, hash []byte) error {
	if !ftrack.ValidPair(action, reason) {
		return fmt.Errorf("unrecognized action/reason pair %q/%q: %w", action, reason, ftrack.ErrValidation)
	}
	r.Entries = append(r.Entries, RecordedEntry{Action: action, Reason: reason, Path: path, Hash: hash})
	return nil
}

// ByPath returns the entries recorded for path, in order.
func (r *MemoryRecorder) ByPath(path string) []RecordedEntry {
	var out []RecordedEntry
	for _, e := range r.Entries {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many entries carry the given action.
func (r *MemoryRecorder) Count(action ftrack.Action) int {
	n := 0
	for _, e := range r.Entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
