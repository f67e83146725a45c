//go:build linux

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

// filesystemID returns the f_fsid of the filesystem holding path, packed
// into a single int64. The id is stable for the life of a mount and
// changes when a different filesystem is mounted at the same place.
func filesystemID(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, &os.PathError{Op: "statfs", Path: path, Err: err}
	}

	hi := uint64(uint32(st.Fsid.Val[0]))
	lo := uint64(uint32(st.Fsid.Val[1]))
	return int64(hi<<32 | lo), nil
}
