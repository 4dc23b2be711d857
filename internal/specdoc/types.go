// Package specdoc models spec documents: a title, optional Description
// and Files sections, a single Checks section of ordered check items,
// and an optional trailing meta block.
//
//	# Login flow
//	## Files
//	- internal/auth/login.go
//	## Checks
//	- [ ] validate user credentials
//	- [✓] generate secure token for authentication
//	<!-- meta:
//	{ "files": ["internal/auth/login.go"], "file_hashes": {"internal/auth/login.go": "ab12…"} }
//	-->
//	<!-- generated via specsync v0.3.0 on 2026-10-01 -->
//
// Documents keep their raw lines so that status updates and appended
// items leave every other byte untouched.
package specdoc

import (
	"errors"
	"fmt"
)

// --- Check status enum ---

// Status is the verification state of one check item.
type Status string

const (
	StatusUnchecked Status = "unchecked"
	StatusPass      Status = "pass"
	StatusFail      Status = "fail"
)

// Glyph returns the checkbox character written for the status.
func (s Status) Glyph() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusFail:
		return "✗"
	default:
		return " "
	}
}

// statusFromGlyph maps a checkbox character to a status. The legacy
// "done" markers x/X read as pass.
func statusFromGlyph(g string) Status {
	switch g {
	case "x", "X", "✓":
		return StatusPass
	case "✗":
		return StatusFail
	default:
		return StatusUnchecked
	}
}

// CheckItem is one line of the Checks section.
type CheckItem struct {
	Text   string `json:"text"`
	Status Status `json:"status"`
	// Line is the zero-based line index in the document.
	Line int `json:"line"`
}

// Generated describes the trailing "generated via" comment.
type Generated struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Date    string `json:"date"`
}

// --- Errors ---

var (
	// ErrNoChecks means the document has no Checks section.
	ErrNoChecks = errors.New("spec has no Checks section")
	// ErrDuplicateChecks means the document has more than one Checks section.
	ErrDuplicateChecks = errors.New("spec has more than one Checks section")
	// ErrNoTitle means the document lacks a "# Title" line.
	ErrNoTitle = errors.New("spec has no title line")
)

// MetaError reports a meta block that failed to decode or validate.
// It is non-fatal: callers fall back to heuristic file selection.
type MetaError struct {
	Path string
	Err  error
}

func (e *MetaError) Error() string {
	return fmt.Sprintf("%s: invalid meta block: %v", e.Path, e.Err)
}

func (e *MetaError) Unwrap() error { return e.Err }
