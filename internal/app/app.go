package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ftrack-go/internal/config"
	"ftrack-go/internal/database"
	"ftrack-go/internal/encryption"
	"ftrack-go/internal/fs"
	"ftrack-go/internal/ftrack"
	"ftrack-go/internal/history"
)

// App is the application layer between the CLI and the core packages.
// It constructs collaborators from config, accepts raw string paths, and
// manages resource lifecycles within each operation.
type App struct {
	cfg *config.Config
}

// New creates an App over the given config.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// InitStore bootstraps a brand-new empty store at the configured database
// path. Fails if anything already exists there.
func (a *App) InitStore() error {
	if err := os.MkdirAll(filepath.Dir(a.cfg.Database), 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	store, err := database.Create(a.cfg.Database, ftrack.NewNopLogger())
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	return store.Close()
}

// SetupEncryption generates the age key pair protecting history logs.
func (a *App) SetupEncryption(passphrase string) error {
	enc := encryption.NewAgeEncryptor(a.cfg.Encryption.PublicKeyPath, a.cfg.Encryption.PrivateKeyPath)
	return enc.Setup(passphrase)
}

// AddFilesystem registers a directory as a tracked filesystem root,
// capturing its live filesystem id. Returns false if the root was already
// registered. The caller persists the updated config.
func (a *App) AddFilesystem(rawPath string) (string, bool, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return "", false, fmt.Errorf("resolving path: %w", err)
	}

	fsys := fs.NewOSFilesystem(nil)
	if !fsys.IsDir(abs) {
		return "", false, fmt.Errorf("tracked root must be a directory: %s: %w", abs, ftrack.ErrValidation)
	}

	fsID, err := fsys.FilesystemID(abs)
	if err != nil {
		return "", false, fmt.Errorf("reading filesystem id of %s: %w", abs, err)
	}

	return abs, a.cfg.AddFilesystem(abs, fsID), nil
}

// RemoveFilesystem deregisters a tracked root. The path may no longer
// exist on disk, so only lexical resolution is applied. Returns false if
// the root was not registered.
func (a *App) RemoveFilesystem(rawPath string) (string, bool, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return "", false, fmt.Errorf("resolving path: %w", err)
	}
	return abs, a.cfg.RemoveFilesystem(abs), nil
}

// Update runs one reconciliation pass: open the store read-write, prune
// then register, write every decision to a fresh history log, and commit
// once after both phases finish.
func (a *App) Update() (ftrack.Summary, error) {
	var sum ftrack.Summary

	if err := a.validateForUpdate(); err != nil {
		return sum, err
	}

	logPath, histPath, err := a.runFilePaths()
	if err != nil {
		return sum, err
	}

	runID := uuid.New().String()
	slogger, logFile, err := newLogger(logPath, runID)
	if err != nil {
		return sum, err
	}
	defer logFile.Close()
	logger := &slogAdapter{l: slogger}

	var enc ftrack.Encryptor
	if a.cfg.History.Encrypt {
		enc = encryption.NewAgeEncryptor(a.cfg.Encryption.PublicKeyPath, a.cfg.Encryption.PrivateKeyPath)
	}

	hist, err := history.New(histPath, history.Options{
		Compress:  a.cfg.History.Compress,
		Encryptor: enc,
	})
	if err != nil {
		return sum, fmt.Errorf("creating history log: %w", err)
	}
	defer hist.Close()

	store, err := database.Open(a.cfg.Database, false, logger)
	if err != nil {
		return sum, fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	fsys := fs.NewOSFilesystem(a.cfg.Scan.Ignore)
	engine := ftrack.NewEngine(store, fsys, hist, a.cfg.Filesystems, logger)

	sum, err = engine.Run()
	if err != nil {
		// The deferred Close discards the partial transaction; the
		// history log keeps everything attempted so far.
		return sum, err
	}

	logger.Info("finished updating store, committing changes")
	if err := store.Commit(); err != nil {
		return sum, err
	}

	logger.Info("run complete",
		"added", sum.Added,
		"updated", sum.Updated,
		"deleted", sum.Deleted,
		"skipped", sum.Skipped,
		"errors", sum.Errors,
	)
	return sum, nil
}

// validateForUpdate fails fast on structural config problems before any
// file is touched.
func (a *App) validateForUpdate() error {
	if a.cfg.Database == "" {
		return fmt.Errorf("no store path configured: %w", ftrack.ErrValidation)
	}

	ok, err := database.IsSQLiteFile(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("checking store: %w", err)
	}
	if !ok {
		return fmt.Errorf("configured store is not a SQLite database: %s: %w", a.cfg.Database, ftrack.ErrValidation)
	}

	if a.cfg.LogDir == "" {
		return fmt.Errorf("no log directory configured: %w", ftrack.ErrValidation)
	}
	info, err := os.Stat(a.cfg.LogDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("log directory does not exist: %s: %w", a.cfg.LogDir, ftrack.ErrValidation)
	}

	return nil
}

// runFilePaths builds the per-run log and history file names from the
// current time, refusing to reuse existing files.
func (a *App) runFilePaths() (logPath, histPath string, err error) {
	stamp := time.Now().Format("2006-01-02 15-04-05")
	logPath = filepath.Join(a.cfg.LogDir, stamp+".log")

	histPath = filepath.Join(a.cfg.LogDir, stamp+".csv")
	if a.cfg.History.Compress {
		histPath += ".gz"
	}
	if a.cfg.History.Encrypt {
		histPath += ".age"
	}

	for _, p := range []string{logPath, histPath} {
		if _, err := os.Stat(p); err == nil {
			return "", "", fmt.Errorf("run file already exists (two runs within one second?): %s: %w", p, ftrack.ErrAlreadyExists)
		}
	}
	return logPath, histPath, nil
}

// Dump writes every record in the store to w as an aligned table.
func (a *App) Dump(w io.Writer) error {
	store, err := database.Open(a.cfg.Database, true, ftrack.NewNopLogger())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	cur, err := store.All()
	if err != nil {
		return err
	}
	defer cur.Close()

	fmt.Fprintf(w, "%-80s | %-64s | %-10s | %-19s | %-10s\n", "Path", "Hash", "Size", "mtime", "fs_id")
	return printRecords(w, cur)
}

// FindByHash writes every record matching the hex-encoded digest to w.
func (a *App) FindByHash(hexDigest string, w io.Writer) error {
	digest, err := hex.DecodeString(hexDigest)
	if err != nil {
		return fmt.Errorf("bad hash %q: %v: %w", hexDigest, err, ftrack.ErrValidation)
	}

	store, err := database.Open(a.cfg.Database, true, ftrack.NewNopLogger())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	cur, err := store.FindByHash(digest)
	if err != nil {
		return err
	}
	defer cur.Close()

	return printRecords(w, cur)
}

// FindByPattern writes every record whose path matches the regular
// expression to w.
func (a *App) FindByPattern(pattern string, w io.Writer) error {
	store, err := database.Open(a.cfg.Database, true, ftrack.NewNopLogger())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	cur, err := store.FindByPattern(pattern)
	if err != nil {
		return err
	}
	defer cur.Close()

	return printRecords(w, cur)
}

// ShowHistory decodes a history log file and writes its entries to w.
// Encrypted logs are unlocked with a passphrase obtained from askPass.
func (a *App) ShowHistory(path string, askPass func() (string, error), w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening history log: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".age") {
		passphrase, err := askPass()
		if err != nil {
			return err
		}

		enc := encryption.NewAgeEncryptor(a.cfg.Encryption.PublicKeyPath, a.cfg.Encryption.PrivateKeyPath)
		ctx, err := enc.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}

		r, err = ctx.Decrypt(f)
		if err != nil {
			return fmt.Errorf("decrypting history log: %w", err)
		}
	}

	entries, err := history.Decode(r)
	if err != nil {
		return err
	}

	for _, e := range entries {
		hash := e.NewHash
		if hash == "" {
			hash = "-"
		}
		fmt.Fprintf(w, "%-7s %-17s %s  %s\n", e.Action, e.Reason, hash, e.Path)
	}
	return nil
}

// printRecords drains a cursor into w, one aligned row per record.
func printRecords(w io.Writer, cur ftrack.Cursor) error {
	for cur.Next() {
		rec := cur.Record()
		fmt.Fprintf(w, "%-80s | %x | %-10d | %-19d | %-10d\n",
			rec.Path, rec.Hash, rec.Size, rec.MTime, rec.FilesystemID)
	}
	return cur.Err()
}
