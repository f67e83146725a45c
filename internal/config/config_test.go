package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		Database: "/home/user/.local/share/ftrack/files.db",
		LogDir:   "/home/user/.local/share/ftrack/log",
		Filesystems: map[string]int64{
			"/home/user": 64769,
			"/mnt/media": 2065,
		},
		History: HistoryConfig{Compress: true, Encrypt: true},
		Encryption: EncryptionConfig{
			PublicKeyPath:  "/home/user/.local/share/ftrack/keys/ftrack.pub",
			PrivateKeyPath: "/home/user/.local/share/ftrack/keys/ftrack.key",
		},
		Scan: ScanConfig{Ignore: []string{"*.tmp", ".git"}},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Database != original.Database {
		t.Errorf("Database = %q, want %q", got.Database, original.Database)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if len(got.Filesystems) != 2 {
		t.Fatalf("len(Filesystems) = %d, want 2", len(got.Filesystems))
	}
	if got.Filesystems["/home/user"] != 64769 {
		t.Errorf("Filesystems[/home/user] = %d, want 64769", got.Filesystems["/home/user"])
	}
	if !got.History.Compress || !got.History.Encrypt {
		t.Errorf("History = %+v, want compress and encrypt true", got.History)
	}
	if got.Encryption.PublicKeyPath != original.Encryption.PublicKeyPath {
		t.Errorf("Encryption.PublicKeyPath = %q, want %q", got.Encryption.PublicKeyPath, original.Encryption.PublicKeyPath)
	}
	if len(got.Scan.Ignore) != 2 {
		t.Fatalf("len(Scan.Ignore) = %d, want 2", len(got.Scan.Ignore))
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/ftrack")

	if cfg.Database != filepath.Join("/data/ftrack", "files.db") {
		t.Errorf("Database = %q", cfg.Database)
	}
	if cfg.LogDir != filepath.Join("/data/ftrack", "log") {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if !cfg.History.Compress {
		t.Error("History.Compress = false, want true")
	}
	if cfg.History.Encrypt {
		t.Error("History.Encrypt = true, want false")
	}
	if len(cfg.Filesystems) != 0 {
		t.Errorf("Filesystems = %v, want empty", cfg.Filesystems)
	}
}

func TestConfig_AddFilesystem(t *testing.T) {
	cfg := NewConfig("/data/ftrack")

	if !cfg.AddFilesystem("/home/user", 100) {
		t.Error("AddFilesystem() = false, want true")
	}
	if cfg.Filesystems["/home/user"] != 100 {
		t.Errorf("Filesystems[/home/user] = %d, want 100", cfg.Filesystems["/home/user"])
	}

	// A second add for the same root must not overwrite the captured id.
	if cfg.AddFilesystem("/home/user", 200) {
		t.Error("duplicate AddFilesystem() = true, want false")
	}
	if cfg.Filesystems["/home/user"] != 100 {
		t.Errorf("Filesystems[/home/user] = %d, want original 100", cfg.Filesystems["/home/user"])
	}
}

func TestConfig_RemoveFilesystem(t *testing.T) {
	cfg := NewConfig("/data/ftrack")
	cfg.AddFilesystem("/home/user", 100)

	if !cfg.RemoveFilesystem("/home/user") {
		t.Error("RemoveFilesystem() = false, want true")
	}
	if _, ok := cfg.Filesystems["/home/user"]; ok {
		t.Error("root still present after removal")
	}
	if cfg.RemoveFilesystem("/home/user") {
		t.Error("second RemoveFilesystem() = true, want false")
	}
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "ftrack.toml")
	cfg := NewConfig("/data/ftrack")
	cfg.AddFilesystem("/home/user", 7)

	if err := WriteToFile(path, cfg); err != nil {
		t.Fatalf("WriteToFile() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Database != cfg.Database {
		t.Errorf("Database = %q, want %q", got.Database, cfg.Database)
	}
	if got.Filesystems["/home/user"] != 7 {
		t.Errorf("Filesystems[/home/user] = %d, want 7", got.Filesystems["/home/user"])
	}
}

func TestInit_RefusesExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ftrack.toml")
	if err := os.WriteFile(path, []byte("database = \"/x\"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := Init(path, NewConfig("/data/ftrack")); err == nil {
		t.Error("Init() error = nil, want error for existing file")
	}
}
