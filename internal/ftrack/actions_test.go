package ftrack

import "testing"

func TestValidPair(t *testing.T) {
	tests := []struct {
		action Action
		reason Reason
		want   bool
	}{
		{ActionNew, ReasonNewFile, true},
		{ActionUpdate, ReasonChanged, true},
		{ActionDelete, ReasonNonexistent, true},
		{ActionDelete, ReasonInvalidFilesystem, true},
		{ActionSkip, ReasonUnchanged, true},
		{ActionError, ReasonUnexpectedFilesystem, true},

		{ActionNew, ReasonChanged, false},
		{ActionUpdate, ReasonNewFile, false},
		{ActionDelete, ReasonUnchanged, false},
		{ActionSkip, ReasonNonexistent, false},
		{ActionError, ReasonNewFile, false},
		{Action("purge"), ReasonNonexistent, false},
		{ActionNew, Reason("brand_new"), false},
	}

	for _, tt := range tests {
		if got := ValidPair(tt.action, tt.reason); got != tt.want {
			t.Errorf("ValidPair(%q, %q) = %t, want %t", tt.action, tt.reason, got, tt.want)
		}
	}
}
