//go:build !linux

package fs

import (
	"fmt"
	"runtime"
)

func filesystemID(path string) (int64, error) {
	return 0, fmt.Errorf("filesystem ids are not supported on %s", runtime.GOOS)
}
