package fs

import "testing"

func TestIgnoreMatcher_Match(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"no patterns", nil, "a.txt", false},
		{"basename glob", []string{"*.log"}, "sub/dir/app.log", true},
		{"basename glob miss", []string{"*.log"}, "sub/dir/app.txt", false},
		{"exact basename", []string{".DS_Store"}, "photos/.DS_Store", true},
		{"path pattern", []string{"tmp/*"}, "tmp/scratch", true},
		{"path pattern nested miss", []string{"tmp/*"}, "tmp/a/b", false},
		{"comment skipped", []string{"# *.txt"}, "a.txt", false},
		{"blank skipped", []string{"  "}, "a.txt", false},
		{"bad pattern skipped", []string{"[unclosed"}, "a.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewIgnoreMatcher(tt.patterns)
			if got := m.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %t, want %t", tt.path, got, tt.want)
			}
		})
	}
}
