package testutil

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"ftrack-go/internal/ftrack"
)

// FakeFile is one file in the fake filesystem.
type FakeFile struct {
	Content []byte
	ModTime int64 // nanoseconds since the Unix epoch
	FsID    int64

	// DenyStat makes Describe fail with a permission error.
	DenyStat bool

	// DenyRead makes hashing the file fail with a permission error.
	DenyRead bool
}

// FakeFilesystem is an in-memory ftrack.Filesystem. Files and directories
// are added explicitly; there is no implicit parent creation.
type FakeFilesystem struct {
	files map[string]*FakeFile
	dirs  map[string]int64 // directory path -> filesystem id
}

var _ ftrack.Filesystem = (*FakeFilesystem)(nil)

// NewFakeFilesystem creates an empty fake filesystem.
func NewFakeFilesystem() *FakeFilesystem {
	return &FakeFilesystem{
		files: make(map[string]*FakeFile),
		dirs:  make(map[string]int64),
	}
}

// AddDir registers a directory with its filesystem id.
func (f *FakeFilesystem) AddDir(path string, fsID int64) {
	f.dirs[path] = fsID
}

// AddFile adds a regular file and returns it for further tweaking.
func (f *FakeFilesystem) AddFile(path string, content []byte, mtime, fsID int64) *FakeFile {
	file := &FakeFile{Content: content, ModTime: mtime, FsID: fsID}
	f.files[path] = file
	return file
}

// Remove deletes a file, as if it disappeared between runs.
func (f *FakeFilesystem) Remove(path string) {
	delete(f.files, path)
}

func (f *FakeFilesystem) Describe(path string) (ftrack.Descriptor, error) {
	file, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no regular file at %s: %w", path, ftrack.ErrNotFound)
	}
	if file.DenyStat {
		return nil, fmt.Errorf("stat %s: %w", path, fs.ErrPermission)
	}
	return &FakeDescriptor{path: path, file: file}, nil
}

func (f *FakeFilesystem) ExistsRegular(path string) bool {
	_, ok := f.files[path]
	return ok
}

func (f *FakeFilesystem) FilesystemID(path string) (int64, error) {
	if fsID, ok := f.dirs[path]; ok {
		return fsID, nil
	}
	if file, ok := f.files[path]; ok {
		return file.FsID, nil
	}
	return 0, fmt.Errorf("no entry at %s: %w", path, ftrack.ErrNotFound)
}

func (f *FakeFilesystem) IsDir(path string) bool {
	_, ok := f.dirs[path]
	return ok
}

// Walk visits every file under root in sorted order.
func (f *FakeFilesystem) Walk(root string, visit func(path string) error, fail func(path string, err error)) error {
	prefix := strings.TrimSuffix(root, "/") + "/"

	paths := make([]string, 0, len(f.files))
	for path := range f.files {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := visit(path); err != nil {
			return err
		}
	}
	return nil
}

// FakeDescriptor is the live descriptor of a FakeFile.
type FakeDescriptor struct {
	path string
	file *FakeFile
}

var _ ftrack.Descriptor = (*FakeDescriptor)(nil)

func (d *FakeDescriptor) Path() string   { return d.path }
func (d *FakeDescriptor) Size() int64    { return int64(len(d.file.Content)) }
func (d *FakeDescriptor) ModTime() int64 { return d.file.ModTime }

func (d *FakeDescriptor) Hash() ([]byte, error) {
	if d.file.DenyRead {
		return nil, fmt.Errorf("open %s: %w", d.path, fs.ErrPermission)
	}
	sum := sha256.Sum256(d.file.Content)
	return sum[:], nil
}

func (d *FakeDescriptor) FilesystemID() (int64, error) {
	return d.file.FsID, nil
}
