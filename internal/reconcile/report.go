package reconcile

import (
	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/bullets"
	"github.com/HendryAvila/specsync/internal/match"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusPass      Status = "PASS"
	StatusFail      Status = "FAIL"
	StatusExhausted Status = "EXHAUSTED"
)

// ExitCode maps a status to the process exit code.
func (s Status) ExitCode() int {
	switch s {
	case StatusPass:
		return 0
	case StatusExhausted:
		return 2
	default:
		return 1
	}
}

// Report describes one reconciliation of one spec.
type Report struct {
	RunID  string `json:"run_id"`
	Spec   string `json:"spec"`
	Path   string `json:"path"`
	Title  string `json:"title"`
	Status Status `json:"status"`

	Match      match.Result      `json:"match"`
	Selection  bullets.Selection `json:"selection"`
	Skipped    []string          `json:"skipped,omitempty"`
	Summarized bool              `json:"summarized"`
	CacheHit   bool              `json:"cache_hit"`

	// Appended lists bullets written to the spec's Checks section.
	Appended []string `json:"appended,omitempty"`
	// StaleFiles are meta-fingerprinted files whose content changed.
	StaleFiles []string         `json:"stale_files,omitempty"`
	Integrity  *snapshot.Result `json:"integrity,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`

	Attempt     autofix.AttemptState `json:"attempt"`
	MaxAttempts int                  `json:"max_attempts"`
	Checks      int                  `json:"checks"`
}

// ExitCode is Status.ExitCode.
func (r *Report) ExitCode() int { return r.Status.ExitCode() }

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
