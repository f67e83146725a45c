package ftrack

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

// Summary accumulates the outcome counts of one reconciliation pass.
type Summary struct {
	Added   int
	Updated int
	Skipped int
	Deleted int
	Errors  int
}

// Engine reconciles the metadata store against live disk state across a
// set of tracked filesystem roots. One Run performs a prune phase followed
// by a register phase; every decision is written to the history recorder.
// The engine never commits — the caller commits the store once after the
// pass completes.
type Engine struct {
	store   Store
	fsys    Filesystem
	history Recorder
	roots   map[string]int64 // tracked root path -> expected filesystem id
	logger  Logger
}

// NewEngine creates an engine over the given collaborators.
// roots maps each tracked filesystem root to its expected filesystem id.
func NewEngine(store Store, fsys Filesystem, history Recorder, roots map[string]int64, logger Logger) *Engine {
	return &Engine{
		store:   store,
		fsys:    fsys,
		history: history,
		roots:   roots,
		logger:  logger,
	}
}

// Run executes one full reconciliation pass: validate the configured
// roots, prune stale records, then register live files. Per-file
// permission failures are counted and skipped; anything structural aborts
// the pass. The returned summary covers both phases.
func (e *Engine) Run() (Summary, error) {
	var sum Summary

	if err := e.validateRoots(); err != nil {
		return sum, err
	}

	if err := e.prune(&sum); err != nil {
		return sum, fmt.Errorf("prune phase: %w", err)
	}

	if err := e.register(&sum); err != nil {
		return sum, fmt.Errorf("register phase: %w", err)
	}

	return sum, nil
}

// validateRoots fails fast if any configured root is not a directory or
// its live filesystem id disagrees with the configured value. Running
// against a root whose filesystem changed underneath would mass-delete
// records in the prune phase.
func (e *Engine) validateRoots() error {
	if len(e.roots) == 0 {
		return fmt.Errorf("no filesystem roots configured: %w", ErrValidation)
	}

	for _, root := range e.sortedRoots() {
		if !e.fsys.IsDir(root) {
			return fmt.Errorf("tracked root is not a directory: %s: %w", root, ErrValidation)
		}

		fsID, err := e.fsys.FilesystemID(root)
		if err != nil {
			return fmt.Errorf("reading filesystem id of %s: %w", root, err)
		}
		if fsID != e.roots[root] {
			return fmt.Errorf("filesystem id mismatch for root %s: expected %d, got %d: %w",
				root, e.roots[root], fsID, ErrValidation)
		}
	}

	return nil
}

// prune deletes records whose filesystem id is no longer tracked or whose
// file no longer exists on disk. It runs before register so stale records
// never survive into the new filesystem id set.
func (e *Engine) prune(sum *Summary) error {
	e.logger.Info("pruning deleted files")

	tracked := make(map[int64]bool, len(e.roots))
	for _, fsID := range e.roots {
		tracked[fsID] = true
	}

	// Candidates are collected first and deleted after the cursor is
	// closed: the cursor holds the store's connection, which the deletes
	// need.
	type candidate struct {
		rec    Record
		reason Reason
	}
	var stale []candidate

	cur, err := e.store.All()
	if err != nil {
		return fmt.Errorf("enumerating records: %w", err)
	}
	for cur.Next() {
		rec := cur.Record()
		switch {
		case !tracked[rec.FilesystemID]:
			stale = append(stale, candidate{rec, ReasonInvalidFilesystem})
		case !e.fsys.ExistsRegular(rec.Path):
			stale = append(stale, candidate{rec, ReasonNonexistent})
		}
	}
	if err := cur.Err(); err != nil {
		cur.Close()
		return fmt.Errorf("enumerating records: %w", err)
	}
	if err := cur.Close(); err != nil {
		return fmt.Errorf("enumerating records: %w", err)
	}

	for _, c := range stale {
		if c.reason == ReasonInvalidFilesystem {
			e.logger.Warn("record on untracked filesystem, deleting", "path", c.rec.Path, "fs_id", c.rec.FilesystemID)
		}
		if err := e.store.Delete(c.rec.Path); err != nil {
			return fmt.Errorf("deleting record %s: %w", c.rec.Path, err)
		}
		if err := e.history.Record(ActionDelete, c.reason, c.rec.Path, nil); err != nil {
			return err
		}
		sum.Deleted++
	}

	e.logger.Info("pruning complete", "deleted", sum.Deleted)
	return nil
}

// register walks every tracked root and inserts, updates, or skips each
// regular file found. Files are processed strictly one at a time: the
// decision is applied and logged before the walk advances.
func (e *Engine) register(sum *Summary) error {
	for _, root := range e.sortedRoots() {
		e.logger.Info("scanning filesystem root", "root", root)

		expected := e.roots[root]
		visit := func(path string) error {
			return e.registerOne(path, expected, sum)
		}
		fail := func(path string, err error) {
			e.logger.Error("cannot read directory entry", "path", path, "error", err)
			sum.Errors++
		}

		if err := e.fsys.Walk(root, visit, fail); err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
	}

	return nil
}

// registerOne decides the fate of a single live file. Permission failures
// are logged and counted but never abort the pass.
func (e *Engine) registerOne(path string, expectedFsID int64, sum *Summary) error {
	live, err := e.fsys.Describe(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			e.logger.Error("permission denied", "path", path, "error", err)
			sum.Errors++
			return nil
		}
		return err
	}

	fsID, err := live.FilesystemID()
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			e.logger.Error("permission denied", "path", path, "error", err)
			sum.Errors++
			return nil
		}
		return err
	}

	// A file below this root on a different filesystem (a nested mount
	// point) is neither inserted nor updated. Any existing record is left
	// exactly as it was.
	if fsID != expectedFsID {
		e.logger.Error("unexpected filesystem id", "path", path, "fs_id", fsID, "expected", expectedFsID)
		if err := e.history.Record(ActionError, ReasonUnexpectedFilesystem, path, nil); err != nil {
			return err
		}
		sum.Errors++
		return nil
	}

	rec, err := e.store.Lookup(live.Path())
	if err != nil {
		return fmt.Errorf("looking up %s: %w", live.Path(), err)
	}

	switch {
	case rec == nil:
		fresh, err := MakeRecord(live, true)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				e.logger.Error("permission denied hashing file", "path", path, "error", err)
				sum.Errors++
				return nil
			}
			return err
		}
		if err := e.store.Insert(fresh); err != nil {
			return fmt.Errorf("inserting %s: %w", fresh.Path, err)
		}
		if err := e.history.Record(ActionNew, ReasonNewFile, fresh.Path, fresh.Hash); err != nil {
			return err
		}
		sum.Added++

	case rec.Size != live.Size() || rec.MTime != live.ModTime() || rec.FilesystemID != fsID:
		// Change detection uses only the cheap stat-derived fields; the
		// hash is recomputed here, never compared.
		fresh, err := MakeRecord(live, true)
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				e.logger.Error("permission denied hashing file", "path", path, "error", err)
				sum.Errors++
				return nil
			}
			return err
		}
		if err := e.store.Update(fresh); err != nil {
			return fmt.Errorf("updating %s: %w", fresh.Path, err)
		}
		if err := e.history.Record(ActionUpdate, ReasonChanged, fresh.Path, fresh.Hash); err != nil {
			return err
		}
		sum.Updated++

	default:
		if err := e.history.Record(ActionSkip, ReasonUnchanged, live.Path(), nil); err != nil {
			return err
		}
		sum.Skipped++
	}

	return nil
}

// sortedRoots returns the tracked roots in stable order, so runs are
// deterministic regardless of map iteration order.
func (e *Engine) sortedRoots() []string {
	roots := make([]string, 0, len(e.roots))
	for root := range e.roots {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	return roots
}
