// Package reconcile runs one reconciliation of a spec against the code it
// references: integrity guard, bullet extraction, matching, status
// updates and appending undocumented behaviour to the spec.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/bullets"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/match"
	"github.com/HendryAvila/specsync/internal/mutator"
	"github.com/HendryAvila/specsync/internal/snapshot"
	"github.com/HendryAvila/specsync/internal/specdoc"
)

var tracer = otel.Tracer("github.com/HendryAvila/specsync/internal/reconcile")

// ErrSpecNotFound is returned when the named spec file does not exist.
var ErrSpecNotFound = errors.New("spec not found")

// AppendMode controls what happens to bullets found only in code.
type AppendMode string

const (
	// AppendInteractive confirms each bullet through Options.Prompter.
	AppendInteractive AppendMode = "interactive"
	// AppendBatch appends every bullet without asking.
	AppendBatch AppendMode = "batch"
	// AppendNone leaves the spec's item list alone.
	AppendNone AppendMode = "none"
)

// Options tune a single run.
type Options struct {
	// Strict refuses to reconcile when the snapshot detects edits.
	Strict   bool
	Append   AppendMode
	Prompter mutator.Prompter
	// Force bypasses the summary cache.
	Force bool
}

// Deps are the optional collaborators of a Reconciler.
type Deps struct {
	Summarizer bullets.Summarizer
	Cache      bullets.Cache
	Logger     *zap.Logger
}

// Reconciler reconciles specs of one project.
type Reconciler struct {
	root      string
	cfg       *config.Config
	guard     *snapshot.Guard
	extractor *bullets.Extractor
	engine    *match.Engine
	mutator   *mutator.Mutator
	attempts  *autofix.FileStateStore
	logger    *zap.Logger
}

// New wires a Reconciler for the project at root.
func New(root string, cfg *config.Config, deps Deps) *Reconciler {
	logger := logging.OrNop(deps.Logger)
	return &Reconciler{
		root:  root,
		cfg:   cfg,
		guard: snapshot.NewProjectGuard(root, cfg, logger),
		extractor: bullets.NewExtractor(bullets.ExtractorConfig{
			Strategy:   cfg.Extraction.Strategy,
			Summarizer: deps.Summarizer,
			Cache:      deps.Cache,
			Logger:     logger,
		}),
		engine:   match.New(match.DefaultRules().WithConfig(cfg.Matching)),
		mutator:  mutator.New(logger),
		attempts: autofix.NewFileStateStore(filepath.Join(config.StatePath(root), config.AttemptsDir)),
		logger:   logger,
	}
}

// Guard returns the project's integrity guard.
func (r *Reconciler) Guard() *snapshot.Guard { return r.guard }

// Attempts returns the attempt counter store.
func (r *Reconciler) Attempts() autofix.StateStore { return r.attempts }

// SpecPath resolves a spec reference ("auth", "billing/auth.md",
// "specs/auth.md") to its file. References outside the specs directory
// return an error wrapping config.ErrOutsideSpecsDir.
func (r *Reconciler) SpecPath(name string) (string, error) {
	return r.cfg.ResolveSpec(r.root, name)
}

// SpecName resolves a spec reference to the name its attempt counter is
// kept under.
func (r *Reconciler) SpecName(name string) (string, error) {
	path, err := r.SpecPath(name)
	if err != nil {
		return "", err
	}
	return r.guard.Name(path), nil
}

// Check runs one reconciliation pass without touching the attempt
// counter.
func (r *Reconciler) Check(ctx context.Context, name string, opts Options) (*Report, error) {
	path, err := r.SpecPath(name)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		RunID:  uuid.NewString(),
		Spec:   r.guard.Name(path),
		Path:   path,
		Status: StatusFail,
	}
	logger := r.logger.With(zap.String("run_id", rep.RunID), zap.String("spec", rep.Spec))

	ctx, span := tracer.Start(ctx, "reconcile.check",
		trace.WithAttributes(attribute.String("spec", rep.Spec), attribute.String("run_id", rep.RunID)),
	)
	defer span.End()

	if err := r.check(ctx, rep, opts, logger); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check failed")
		return rep, err
	}
	span.SetAttributes(
		attribute.String("status", string(rep.Status)),
		attribute.Int("matches", len(rep.Match.Matches)),
		attribute.Int("missing_in_code", len(rep.Match.MissingInCode)),
		attribute.Int("missing_in_spec", len(rep.Match.MissingInSpec)),
	)
	return rep, nil
}

func (r *Reconciler) check(ctx context.Context, rep *Report, opts Options, logger *zap.Logger) error {
	src, err := os.ReadFile(rep.Path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSpecNotFound, rep.Path)
	}
	if err != nil {
		return fmt.Errorf("reading spec: %w", err)
	}
	doc, err := specdoc.Parse(rep.Path, src)
	if err != nil {
		return err
	}
	rep.Title = doc.Title

	// Integrity gate, before anything is written.
	integrity, err := r.guard.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verifying snapshot: %w", err)
	}
	rep.Integrity = integrity
	if !integrity.OK() {
		if opts.Strict {
			return integrity.Err()
		}
		rep.warn(fmt.Sprintf("%s: spec files changed since the last snapshot", snapshot.TamperMarker))
	}

	if doc.MetaErr != nil {
		rep.warn(doc.MetaErr.Error())
		logger.Warn("ignoring malformed meta block", zap.Error(doc.MetaErr))
	}
	if stale := doc.Meta.StaleFiles(r.root); len(stale) > 0 {
		rep.StaleFiles = stale
		rep.warn(fmt.Sprintf("referenced files changed since the spec was generated: %s", strings.Join(stale, ", ")))
	}

	rep.Selection = bullets.SelectFiles(doc, r.root, r.cfg.Extraction.MaxFiles, r.cfg.SpecsDir, config.StateDir)
	if len(rep.Selection.Files) == 0 {
		rep.warn("no implementation files found for this spec")
	}
	logger.Debug("selected files", zap.String("reason", rep.Selection.Reason), zap.Strings("files", rep.Selection.Files))

	x, err := r.extractor.Extract(ctx, r.root, rep.Selection.Files, opts.Force)
	if err != nil {
		return err
	}
	rep.Skipped, rep.Summarized, rep.CacheHit = x.Skipped, x.Summarized, x.CacheHit
	rep.Warnings = append(rep.Warnings, x.Warnings...)

	rep.Match = r.engine.Match(bullets.FromSpec(doc), x.Bullets)
	if rep.Match.Clean() {
		rep.Status = StatusPass
	}

	wrote, err := r.writeStatuses(doc, src, rep.Match)
	if err != nil {
		return err
	}

	if len(rep.Match.MissingInSpec) > 0 {
		appended, err := r.append(ctx, rep, opts)
		if err != nil {
			// Earlier writes of this pass are still ours to record.
			return errors.Join(err, r.refresh(ctx, rep, integrity))
		}
		rep.Appended = appended
		wrote = wrote || len(appended) > 0
	}

	if wrote {
		if err := r.refresh(ctx, rep, integrity); err != nil {
			return err
		}
	}

	logger.Info("reconciled",
		zap.String("status", string(rep.Status)),
		zap.Int("matches", len(rep.Match.Matches)),
		zap.Int("missing_in_code", len(rep.Match.MissingInCode)),
		zap.Int("missing_in_spec", len(rep.Match.MissingInSpec)))
	return nil
}

// refresh records the spec's new fingerprint after this pass wrote it.
// With other edits pending review the snapshot is left alone.
func (r *Reconciler) refresh(ctx context.Context, rep *Report, integrity *snapshot.Result) error {
	if !integrity.OK() {
		rep.warn("snapshot not refreshed because other spec edits are pending review")
		return nil
	}
	if err := r.guard.Record(ctx, rep.Path); err != nil {
		return fmt.Errorf("refreshing snapshot: %w", err)
	}
	return nil
}

// writeStatuses marks matched items pass and the rest fail. A clean run
// resets every item to unchecked instead. The file is written only when
// its content changes.
func (r *Reconciler) writeStatuses(doc *specdoc.Document, src []byte, res match.Result) (bool, error) {
	if res.Clean() {
		doc.ResetChecks()
	} else {
		matched := make([]bool, len(doc.Checks))
		for _, p := range res.Matches {
			if p.SpecIndex < len(matched) {
				matched[p.SpecIndex] = true
			}
		}
		for i := range doc.Checks {
			if matched[i] {
				doc.SetStatus(i, specdoc.StatusPass)
			} else {
				doc.SetStatus(i, specdoc.StatusFail)
			}
		}
	}
	if string(doc.Bytes()) == string(src) {
		return false, nil
	}
	if err := doc.Save(); err != nil {
		return false, fmt.Errorf("writing check statuses: %w", err)
	}
	return true, nil
}

func (r *Reconciler) append(ctx context.Context, rep *Report, opts Options) ([]string, error) {
	var prompter mutator.Prompter
	switch opts.Append {
	case AppendBatch:
	case AppendInteractive:
		if opts.Prompter == nil {
			rep.warn("no prompter available, undocumented bullets were not appended")
			return nil, nil
		}
		prompter = opts.Prompter
	default:
		return nil, nil
	}
	out, err := r.mutator.AppendChecks(ctx, rep.Path, rep.Match.MissingInSpec, prompter)
	if err != nil {
		return nil, fmt.Errorf("appending checks: %w", err)
	}
	return out.Appended, nil
}

// Run reconciles name under the attempt budget. With a nil fixer one
// failed check records an attempt and returns FAIL; with a fixer the
// check → fix loop continues until PASS or EXHAUSTED.
func (r *Reconciler) Run(ctx context.Context, name string, opts Options, fixer autofix.Fixer) (*Report, error) {
	path, err := r.SpecPath(name)
	if err != nil {
		return nil, err
	}
	ctrl := autofix.NewController(r.cfg.AutoFix.MaxAttempts, r.attempts, fixer, r.logger)

	var last *Report
	out, err := ctrl.Run(ctx, r.guard.Name(path), path, func(ctx context.Context) (autofix.Pass, error) {
		rep, err := r.Check(ctx, name, opts)
		last = rep
		if err != nil {
			return autofix.Pass{}, err
		}
		return autofix.Pass{Clean: rep.Status == StatusPass, Files: rep.Selection.Files}, nil
	})
	if last == nil {
		// The counter could not be loaded.
		return nil, err
	}
	if out != nil {
		last.Attempt = out.Attempt
		last.Checks = out.Checks
	}
	last.MaxAttempts = ctrl.MaxAttempts()

	if errors.Is(err, autofix.ErrExhausted) {
		last.Status = StatusExhausted
		last.warn("fix attempts exhausted, manual intervention required")
		return last, nil
	}
	return last, err
}
