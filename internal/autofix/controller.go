// Package autofix bounds corrective retries for a spec.
//
// The controller is a small state machine:
//
//	Idle → Attempting → Succeeded
//	                  → Exhausted
//	                  → Attempting (after a fix)
//
// Each failed check consumes one attempt. Once Count+1 would exceed the
// configured maximum the controller stops in Exhausted and manual
// intervention is required.
package autofix

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
)

var tracer = otel.Tracer("github.com/HendryAvila/specsync/internal/autofix")

// State is a controller state.
type State string

const (
	StateIdle       State = "idle"
	StateAttempting State = "attempting"
	StateSucceeded  State = "succeeded"
	StateExhausted  State = "exhausted"
)

// ErrExhausted is returned when the attempt budget is used up.
var ErrExhausted = errors.New("fix attempts exhausted, manual intervention required")

// Pass is the outcome of one reconciliation check as seen by the
// controller.
type Pass struct {
	Clean bool
	// Files are handed to the Fixer.
	Files []string
}

// CheckFunc runs one reconciliation check.
type CheckFunc func(ctx context.Context) (Pass, error)

// Fixer applies a code fix for spec. It reports whether it believes the
// fix succeeded; the next check decides.
type Fixer interface {
	Fix(ctx context.Context, specPath string, files []string) (bool, error)
}

// Controller drives check → fix cycles for one spec at a time.
type Controller struct {
	maxAttempts int
	store       StateStore
	fixer       Fixer
	logger      *zap.Logger
}

// NewController creates a Controller. maxAttempts <= 0 selects the
// default. A nil fixer makes Run stop after the first failed check,
// leaving the fix to whoever invokes the next run.
func NewController(maxAttempts int, store StateStore, fixer Fixer, logger *zap.Logger) *Controller {
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultMaxAttempts
	}
	return &Controller{maxAttempts: maxAttempts, store: store, fixer: fixer, logger: logging.OrNop(logger)}
}

// MaxAttempts returns the attempt budget.
func (c *Controller) MaxAttempts() int { return c.maxAttempts }

// Next is the pure transition out of Attempting. A clean check succeeds
// and clears the counter; otherwise the counter is incremented unless
// that would exceed the budget.
func (c *Controller) Next(st AttemptState, clean bool) (State, AttemptState) {
	if clean {
		return StateSucceeded, AttemptState{Spec: st.Spec}
	}
	if st.Count+1 > c.maxAttempts {
		return StateExhausted, st
	}
	return StateAttempting, AttemptState{Spec: st.Spec, Count: st.Count + 1, LastAttempt: timeNow().UTC()}
}

// Outcome summarizes a Run.
type Outcome struct {
	State   State
	Attempt AttemptState
	// Checks counts check invocations in this run.
	Checks int
	Last   Pass
}

// Run loads the spec's attempt state and loops check → fix until the
// check is clean, the budget is exhausted, or (without a fixer) one
// failed attempt has been recorded. Exhaustion is reported as the
// outcome plus an error wrapping ErrExhausted.
func (c *Controller) Run(ctx context.Context, spec, specPath string, check CheckFunc) (*Outcome, error) {
	st, err := c.store.Load(spec)
	if err != nil {
		return nil, err
	}
	out := &Outcome{State: StateIdle, Attempt: st}

	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out.State = StateAttempting

		pass, err := c.attempt(ctx, spec, specPath, out, check)
		if err != nil {
			return out, err
		}
		out.Last = pass

		next, nst := c.Next(out.Attempt, pass.Clean)
		switch next {
		case StateSucceeded:
			if err := c.store.Reset(spec); err != nil {
				return out, err
			}
			out.State, out.Attempt = next, nst
			c.logger.Info("spec reconciled", zap.String("spec", spec), zap.Int("checks", out.Checks))
			return out, nil

		case StateExhausted:
			out.State = next
			c.logger.Warn("fix attempts exhausted",
				zap.String("spec", spec),
				zap.Int("attempts", out.Attempt.Count),
				zap.Int("max_attempts", c.maxAttempts))
			return out, fmt.Errorf("%s: %w (%d/%d)", spec, ErrExhausted, out.Attempt.Count, c.maxAttempts)
		}

		if err := c.store.Save(nst); err != nil {
			return out, err
		}
		out.Attempt = nst
		c.logger.Info("fix attempt recorded",
			zap.String("spec", spec),
			zap.Int("attempt", nst.Count),
			zap.Int("max_attempts", c.maxAttempts))

		if c.fixer == nil {
			return out, nil
		}
		c.fix(ctx, spec, specPath, pass.Files)
	}
}

func (c *Controller) attempt(ctx context.Context, spec, specPath string, out *Outcome, check CheckFunc) (Pass, error) {
	ctx, span := tracer.Start(ctx, "autofix.check",
		trace.WithAttributes(
			attribute.String("spec", spec),
			attribute.Int("attempt", out.Attempt.Count),
			attribute.Int("max_attempts", c.maxAttempts),
		),
	)
	defer span.End()

	out.Checks++
	pass, err := check(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "check failed")
		return pass, err
	}
	span.SetAttributes(attribute.Bool("clean", pass.Clean))
	return pass, nil
}

// fix invokes the fixer. Fixer errors count as a failed attempt and are
// only logged.
func (c *Controller) fix(ctx context.Context, spec, specPath string, files []string) {
	ctx, span := tracer.Start(ctx, "autofix.fix",
		trace.WithAttributes(attribute.String("spec", spec), attribute.Int("files", len(files))),
	)
	defer span.End()

	ok, err := c.fixer.Fix(ctx, specPath, files)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fix failed")
		c.logger.Warn("fixer failed", zap.String("spec", spec), zap.Error(err))
		return
	}
	span.SetAttributes(attribute.Bool("reported_success", ok))
	c.logger.Debug("fixer finished", zap.String("spec", spec), zap.Bool("reported_success", ok))
}
