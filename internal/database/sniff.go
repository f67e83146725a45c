package database

import (
	"bytes"
	"fmt"
	"os"

	"ftrack-go/internal/ftrack"
)

// sqliteMagic is the first 16 bytes of every SQLite 3 database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// IsSQLiteFile reports whether the file at path contains a SQLite
// database. Fails with ftrack.ErrNotFound if no file exists at path.
func IsSQLiteFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("no file at %s: %w", path, ftrack.ErrNotFound)
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	// A valid database is at least one header page.
	if info.Size() < 100 {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := f.Read(header); err != nil {
		return false, fmt.Errorf("reading header of %s: %w", path, err)
	}

	return bytes.Equal(header, sqliteMagic), nil
}
