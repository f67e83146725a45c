package database_test

import (
	"errors"
	"path/filepath"
	"testing"

	"ftrack-go/internal/database"
	"ftrack-go/internal/ftrack"
	"ftrack-go/internal/testutil"
)

func testRecord(path, content string) ftrack.Record {
	return ftrack.Record{
		Path:         path,
		Hash:         testutil.SHA256([]byte(content)),
		Size:         int64(len(content)),
		MTime:        1700000000000000000,
		FilesystemID: 1,
	}
}

// captureLogger records warnings, so tests can assert on them.
type captureLogger struct {
	ftrack.NopLogger
	warnings []string
}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.warnings = append(l.warnings, msg)
}

func TestCreate(t *testing.T) {
	t.Run("new store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "files.db")
		store, err := database.Create(path, ftrack.NewNopLogger())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		defer store.Close()

		if store.ReadOnly() {
			t.Error("ReadOnly() = true, want false")
		}
		if store.Path() != path {
			t.Errorf("Path() = %q, want %q", store.Path(), path)
		}
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "files.db")
		store, err := database.Create(path, ftrack.NewNopLogger())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		store.Close()

		if _, err := database.Create(path, ftrack.NewNopLogger()); !errors.Is(err, ftrack.ErrAlreadyExists) {
			t.Errorf("Create() error = %v, want ErrAlreadyExists", err)
		}
	})
}

func TestOpen(t *testing.T) {
	t.Run("missing store", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")
		if _, err := database.Open(path, false, ftrack.NewNopLogger()); !errors.Is(err, ftrack.ErrNotFound) {
			t.Errorf("Open() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("read-only rejects mutations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "files.db")
		store, err := database.Create(path, ftrack.NewNopLogger())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		store.Close()

		ro, err := database.Open(path, true, ftrack.NewNopLogger())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer ro.Close()

		if !ro.ReadOnly() {
			t.Error("ReadOnly() = false, want true")
		}
		if err := ro.Insert(testRecord("/data/a", "a")); !errors.Is(err, ftrack.ErrReadOnly) {
			t.Errorf("Insert() error = %v, want ErrReadOnly", err)
		}
		if err := ro.Update(testRecord("/data/a", "a")); !errors.Is(err, ftrack.ErrReadOnly) {
			t.Errorf("Update() error = %v, want ErrReadOnly", err)
		}
		if err := ro.Delete("/data/a"); !errors.Is(err, ftrack.ErrReadOnly) {
			t.Errorf("Delete() error = %v, want ErrReadOnly", err)
		}
	})
}

func TestSQLiteStore_InsertLookup(t *testing.T) {
	store := testutil.NewTestStore(t)
	rec := testRecord("/data/a.txt", "alpha")

	if err := store.Insert(rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	// Reads observe the buffered insert before commit.
	got, err := store.Lookup(rec.Path)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got == nil {
		t.Fatal("Lookup() = nil, want record")
	}
	if got.Path != rec.Path || got.Size != rec.Size || got.MTime != rec.MTime || got.FilesystemID != rec.FilesystemID {
		t.Errorf("Lookup() = %+v, want %+v", got, rec)
	}
	if string(got.Hash) != string(rec.Hash) {
		t.Errorf("Hash = %x, want %x", got.Hash, rec.Hash)
	}

	ok, err := store.Exists(rec.Path)
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !ok {
		t.Error("Exists() = false, want true")
	}
}

func TestSQLiteStore_LookupAbsent(t *testing.T) {
	store := testutil.NewTestStore(t)

	got, err := store.Lookup("/data/nothing")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != nil {
		t.Errorf("Lookup() = %+v, want nil", got)
	}

	ok, err := store.Exists("/data/nothing")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if ok {
		t.Error("Exists() = true, want false")
	}
}

func TestSQLiteStore_InsertDuplicate(t *testing.T) {
	store := testutil.NewTestStore(t)
	rec := testRecord("/data/a.txt", "alpha")

	if err := store.Insert(rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(rec); !errors.Is(err, ftrack.ErrIntegrity) {
		t.Errorf("Insert() error = %v, want ErrIntegrity", err)
	}
}

func TestSQLiteStore_InsertPartialRecord(t *testing.T) {
	store := testutil.NewTestStore(t)
	rec := testRecord("/data/a.txt", "alpha")
	rec.Hash = nil

	if err := store.Insert(rec); !errors.Is(err, ftrack.ErrValidation) {
		t.Errorf("Insert() error = %v, want ErrValidation", err)
	}
}

func TestSQLiteStore_Update(t *testing.T) {
	store := testutil.NewTestStore(t)
	rec := testRecord("/data/a.txt", "alpha")

	if err := store.Insert(rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	changed := testRecord("/data/a.txt", "alpha v2")
	changed.MTime = rec.MTime + 1
	if err := store.Update(changed); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Lookup(rec.Path)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Size != changed.Size || got.MTime != changed.MTime {
		t.Errorf("Lookup() = %+v, want %+v", got, changed)
	}
}

func TestSQLiteStore_UpdateAbsent(t *testing.T) {
	store := testutil.NewTestStore(t)

	if err := store.Update(testRecord("/data/ghost", "x")); !errors.Is(err, ftrack.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := testutil.NewTestStore(t)
	rec := testRecord("/data/a.txt", "alpha")

	if err := store.Insert(rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Delete(rec.Path); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Lookup(rec.Path)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != nil {
		t.Errorf("Lookup() = %+v, want nil", got)
	}

	if err := store.Delete(rec.Path); !errors.Is(err, ftrack.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_All(t *testing.T) {
	store := testutil.NewTestStore(t)

	paths := []string{"/data/a", "/data/b", "/data/c"}
	for _, p := range paths {
		if err := store.Insert(testRecord(p, p)); err != nil {
			t.Fatalf("Insert(%s) error = %v", p, err)
		}
	}

	cur, err := store.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	defer cur.Close()

	seen := map[string]bool{}
	for cur.Next() {
		seen[cur.Record().Path] = true
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}

	if len(seen) != len(paths) {
		t.Fatalf("enumerated %d records, want %d", len(seen), len(paths))
	}
	for _, p := range paths {
		if !seen[p] {
			t.Errorf("missing record %s", p)
		}
	}
}

func TestSQLiteStore_FindByHash(t *testing.T) {
	store := testutil.NewTestStore(t)

	// Two records share content, one differs.
	if err := store.Insert(testRecord("/data/a", "same")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(testRecord("/data/b", "same")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(testRecord("/data/c", "other")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	t.Run("matches", func(t *testing.T) {
		cur, err := store.FindByHash(testutil.SHA256([]byte("same")))
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		defer cur.Close()

		var got []string
		for cur.Next() {
			got = append(got, cur.Record().Path)
		}
		if err := cur.Err(); err != nil {
			t.Fatalf("Err() = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("matched %v, want 2 records", got)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		cur, err := store.FindByHash(testutil.SHA256([]byte("absent")))
		if err != nil {
			t.Fatalf("FindByHash() error = %v", err)
		}
		defer cur.Close()

		if cur.Next() {
			t.Errorf("Next() = true, want empty cursor")
		}
		if err := cur.Err(); err != nil {
			t.Errorf("Err() = %v, want nil", err)
		}
	})

	t.Run("wrong digest length", func(t *testing.T) {
		if _, err := store.FindByHash(make([]byte, 31)); !errors.Is(err, ftrack.ErrValidation) {
			t.Errorf("FindByHash() error = %v, want ErrValidation", err)
		}
	})
}

func TestSQLiteStore_FindByPattern(t *testing.T) {
	store := testutil.NewTestStore(t)

	for _, p := range []string{"/photos/2024/a.jpg", "/photos/2024/b.png", "/docs/notes.txt"} {
		if err := store.Insert(testRecord(p, p)); err != nil {
			t.Fatalf("Insert(%s) error = %v", p, err)
		}
	}

	t.Run("matches", func(t *testing.T) {
		cur, err := store.FindByPattern(`^/photos/.*\.jpg$`)
		if err != nil {
			t.Fatalf("FindByPattern() error = %v", err)
		}
		defer cur.Close()

		var got []string
		for cur.Next() {
			got = append(got, cur.Record().Path)
		}
		if err := cur.Err(); err != nil {
			t.Fatalf("Err() = %v", err)
		}
		if len(got) != 1 || got[0] != "/photos/2024/a.jpg" {
			t.Errorf("matched %v, want [/photos/2024/a.jpg]", got)
		}
	})

	t.Run("bad expression", func(t *testing.T) {
		if _, err := store.FindByPattern("("); !errors.Is(err, ftrack.ErrValidation) {
			t.Errorf("FindByPattern() error = %v, want ErrValidation", err)
		}
	})
}

func TestSQLiteStore_CommitPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.db")
	store, err := database.Create(path, ftrack.NewNopLogger())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := testRecord("/data/a.txt", "alpha")
	if err := store.Insert(rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if !store.InTransaction() {
		t.Error("InTransaction() = false, want true after mutation")
	}
	if err := store.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if store.InTransaction() {
		t.Error("InTransaction() = true, want false after commit")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := database.Open(path, true, ftrack.NewNopLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Lookup(rec.Path)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got == nil {
		t.Error("Lookup() = nil, want committed record")
	}
}

func TestSQLiteStore_CloseDiscardsUncommitted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.db")
	logger := &captureLogger{}
	store, err := database.Create(path, logger)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Insert(testRecord("/data/a.txt", "alpha")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(logger.warnings) == 0 {
		t.Error("Close() with uncommitted changes logged no warning")
	}

	reopened, err := database.Open(path, true, ftrack.NewNopLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Lookup("/data/a.txt")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != nil {
		t.Errorf("Lookup() = %+v, want nil (insert was never committed)", got)
	}
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.db")
	store, err := database.Create(path, ftrack.NewNopLogger())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestSQLiteStore_CommitWithoutMutations(t *testing.T) {
	store := testutil.NewTestStore(t)
	if err := store.Commit(); err != nil {
		t.Errorf("Commit() error = %v, want nil", err)
	}
}
