package ftrack

// Action classifies what the reconciliation engine did with one file.
type Action string

// Reason explains why an action was taken. Each action admits only a fixed
// set of reasons; see ValidPair.
type Reason string

const (
	ActionNew    Action = "new"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSkip   Action = "skip"
	ActionError  Action = "error"

	ReasonNewFile              Reason = "new_file"         // file found on disk with no record
	ReasonChanged              Reason = "changed"          // stat fields differ from the record
	ReasonNonexistent          Reason = "nonexistent"      // recorded file no longer on disk
	ReasonInvalidFilesystem    Reason = "invalid_fs_id"    // record's fsid is no longer tracked
	ReasonUnchanged            Reason = "unchanged"        // stat fields match the record
	ReasonUnexpectedFilesystem Reason = "unexpected_fs_id" // live fsid disagrees with the root's
)

// validReasons maps each action to its recognized reasons.
var validReasons = map[Action][]Reason{
	ActionNew:    {ReasonNewFile},
	ActionUpdate: {ReasonChanged},
	ActionDelete: {ReasonNonexistent, ReasonInvalidFilesystem},
	ActionSkip:   {ReasonUnchanged},
	ActionError:  {ReasonUnexpectedFilesystem},
}

// ValidPair reports whether reason is recognized for action.
func ValidPair(action Action, reason Reason) bool {
	for _, r := range validReasons[action] {
		if r == reason {
			return true
		}
	}
	return false
}

// Recorder receives every decision the reconciliation engine makes.
// Implementations must treat entries as append-only: once recorded, an
// entry is never mutated. hash is non-nil only for new and update actions.
type Recorder interface {
	Record(action Action, reason Reason, path string, hash []byte) error
}
