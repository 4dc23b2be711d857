package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/specdoc"
)

// TamperMarker is the machine-readable token printed when verification
// finds unauthorized spec edits.
const TamperMarker = "SPEC_TAMPERED"

// ErrTampered reports spec edits made since the last snapshot.
var ErrTampered = errors.New(TamperMarker + ": spec files changed since the last snapshot")

// ErrUntracked is returned by Record for files outside the specs
// directory.
var ErrUntracked = errors.New("not a spec file below the specs directory")

// hashWorkers bounds concurrent file hashing.
const hashWorkers = 8

// Result compares the current spec files against the snapshot. All
// slices hold sorted, slash-separated paths relative to the project root.
type Result struct {
	Changed []string `json:"changed"`
	Added   []string `json:"added"`
	Deleted []string `json:"deleted"`
	// Baseline is set when no snapshot existed and one was just created.
	Baseline bool `json:"baseline,omitempty"`
}

// OK reports whether nothing differs.
func (r *Result) OK() bool {
	return len(r.Changed) == 0 && len(r.Added) == 0 && len(r.Deleted) == 0
}

// Err returns nil when r is OK, otherwise an error wrapping ErrTampered.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w (%d changed, %d added, %d deleted)", ErrTampered, len(r.Changed), len(r.Added), len(r.Deleted))
}

// Guard computes and compares spec fingerprints.
type Guard struct {
	root     string
	specsDir string
	store    *Store
	logger   *zap.Logger
}

// NewGuard creates a Guard over the *.md files below specsDir. Snapshot
// keys are relative to projectRoot.
func NewGuard(projectRoot, specsDir string, store *Store, logger *zap.Logger) *Guard {
	return &Guard{root: projectRoot, specsDir: specsDir, store: store, logger: logging.OrNop(logger)}
}

// NewProjectGuard creates a Guard using the project's configured layout.
func NewProjectGuard(projectRoot string, cfg *config.Config, logger *zap.Logger) *Guard {
	return NewGuard(projectRoot, cfg.SpecsPath(projectRoot), NewStore(config.SnapshotPath(projectRoot)), logger)
}

// SnapshotPath returns where the snapshot is stored.
func (g *Guard) SnapshotPath() string { return g.store.Path() }

// Name returns the spec identifier of path (see config.SpecName).
func (g *Guard) Name(path string) string { return config.SpecName(g.specsDir, path) }

// Tracks reports whether path is a spec file the guard fingerprints.
func (g *Guard) Tracks(path string) bool {
	rel, err := filepath.Rel(g.specsDir, path)
	return err == nil && filepath.IsLocal(rel) && strings.EqualFold(filepath.Ext(path), config.SpecExt)
}

// Snapshot loads the stored snapshot without comparing it.
func (g *Guard) Snapshot() (*Snapshot, error) { return g.store.Load() }

// Create fingerprints every spec and overwrites the snapshot.
func (g *Guard) Create(ctx context.Context) (*Snapshot, error) {
	hashes, err := g.hashAll(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Specs: hashes, LastUpdated: timeNow().UTC()}
	if err := g.store.Save(snap); err != nil {
		return nil, err
	}
	g.logger.Info("snapshot created", zap.Int("files", snap.TotalFiles), zap.String("path", g.store.Path()))
	return snap, nil
}

// Verify compares the current specs against the snapshot. A missing
// snapshot is a first run: one is created and the result is OK with
// Baseline set.
func (g *Guard) Verify(ctx context.Context) (*Result, error) {
	snap, err := g.store.Load()
	if errors.Is(err, os.ErrNotExist) {
		if _, err := g.Create(ctx); err != nil {
			return nil, err
		}
		return &Result{Changed: []string{}, Added: []string{}, Deleted: []string{}, Baseline: true}, nil
	}
	if err != nil {
		return nil, err
	}

	current, err := g.hashAll(ctx)
	if err != nil {
		return nil, err
	}
	res := compare(snap.Specs, current)
	if !res.OK() {
		g.logger.Warn("spec files changed since snapshot",
			zap.Strings("changed", res.Changed),
			zap.Strings("added", res.Added),
			zap.Strings("deleted", res.Deleted))
	}
	return res, nil
}

// Diff is Verify restricted to files whose content changed.
func (g *Guard) Diff(ctx context.Context) (*Result, error) {
	res, err := g.Verify(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Changed: res.Changed, Added: []string{}, Deleted: []string{}, Baseline: res.Baseline}, nil
}

// Record refreshes the fingerprint of one spec after an authorized edit,
// leaving every other entry untouched. Without an existing snapshot it
// creates one. Files the guard does not track are rejected, since Verify
// would report them as deleted.
func (g *Guard) Record(ctx context.Context, specPath string) error {
	if !g.Tracks(specPath) {
		return fmt.Errorf("%w: %s", ErrUntracked, specPath)
	}
	snap, err := g.store.Load()
	if errors.Is(err, os.ErrNotExist) {
		_, err = g.Create(ctx)
		return err
	}
	if err != nil {
		return err
	}
	key, err := g.key(specPath)
	if err != nil {
		return err
	}
	sum, err := specdoc.HashFile(specPath)
	if err != nil {
		return err
	}
	snap.Specs[key] = sum
	snap.LastUpdated = timeNow().UTC()
	if err := g.store.Save(snap); err != nil {
		return err
	}
	g.logger.Debug("snapshot entry refreshed", zap.String("spec", key))
	return nil
}

// SpecFiles lists the absolute paths of every spec document, sorted.
func (g *Guard) SpecFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(g.specsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == g.specsDir {
				return fs.SkipAll
			}
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), config.SpecExt) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing specs: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (g *Guard) key(path string) (string, error) {
	rel, err := filepath.Rel(g.root, path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

func (g *Guard) hashAll(ctx context.Context) (map[string]string, error) {
	files, err := g.SpecFiles()
	if err != nil {
		return nil, err
	}

	sums := make([]string, len(files))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(hashWorkers)
	for i, f := range files {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			sum, err := specdoc.HashFile(f)
			if err != nil {
				return err
			}
			sums[i] = sum
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(files))
	for i, f := range files {
		key, err := g.key(f)
		if err != nil {
			return nil, err
		}
		out[key] = sums[i]
	}
	return out, nil
}

func compare(stored, current map[string]string) *Result {
	res := &Result{Changed: []string{}, Added: []string{}, Deleted: []string{}}
	for path, sum := range current {
		old, ok := stored[path]
		switch {
		case !ok:
			res.Added = append(res.Added, path)
		case old != sum:
			res.Changed = append(res.Changed, path)
		}
	}
	for path := range stored {
		if _, ok := current[path]; !ok {
			res.Deleted = append(res.Deleted, path)
		}
	}
	sort.Strings(res.Changed)
	sort.Strings(res.Added)
	sort.Strings(res.Deleted)
	return res
}
