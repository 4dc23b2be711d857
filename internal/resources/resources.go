// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (specsync://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

// StatusURI addresses the project status resource.
const StatusURI = "specsync://project/status"

// SpecStatus is one spec's entry in the status resource.
type SpecStatus struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Attempts    int        `json:"attempts"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}

// Status is the payload of the status resource.
type Status struct {
	SpecsDir     string       `json:"specs_dir"`
	MaxAttempts  int          `json:"max_attempts"`
	Strict       bool         `json:"strict"`
	Snapshot     bool         `json:"snapshot"`
	SnapshotTime *time.Time   `json:"snapshot_updated,omitempty"`
	Specs        []SpecStatus `json:"specs"`
}

// Handler serves the status resource.
type Handler struct {
	cfg      *config.Config
	guard    *snapshot.Guard
	attempts autofix.StateStore
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(cfg *config.Config, guard *snapshot.Guard, attempts autofix.StateStore) *Handler {
	return &Handler{cfg: cfg, guard: guard, attempts: attempts}
}

// StatusResource returns the MCP resource definition for project status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		StatusURI,
		"Spec status",
		mcp.WithResourceDescription("Specs in this project with their fix attempt counters and snapshot state"),
		mcp.WithMIMEType("application/json"),
	)
}

// Collect builds the status payload. It never writes to disk.
func (h *Handler) Collect() (*Status, error) {
	st := &Status{
		SpecsDir:    h.cfg.SpecsDir,
		MaxAttempts: h.cfg.AutoFix.MaxAttempts,
		Strict:      h.cfg.Integrity.Strict,
		Specs:       []SpecStatus{},
	}

	snap, err := h.guard.Snapshot()
	switch {
	case err == nil:
		st.Snapshot = true
		t := snap.LastUpdated
		st.SnapshotTime = &t
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	files, err := h.guard.SpecFiles()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		name := h.guard.Name(f)
		as, err := h.attempts.Load(name)
		if err != nil {
			return nil, fmt.Errorf("loading attempts for %s: %w", name, err)
		}
		entry := SpecStatus{Name: name, Path: f, Attempts: as.Count}
		if !as.LastAttempt.IsZero() {
			t := as.LastAttempt
			entry.LastAttempt = &t
		}
		st.Specs = append(st.Specs, entry)
	}
	return st, nil
}

// HandleStatus returns the current project status as JSON.
func (h *Handler) HandleStatus(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	st, err := h.Collect()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
