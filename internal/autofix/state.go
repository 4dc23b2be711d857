package autofix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// AttemptState is the fix-attempt counter of one spec. The controller
// receives it and returns the next value; persisting it between
// invocations is the caller's job.
type AttemptState struct {
	Spec        string    `json:"spec"`
	Count       int       `json:"count"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
}

// StateStore persists AttemptState between processes.
type StateStore interface {
	Load(spec string) (AttemptState, error)
	Save(st AttemptState) error
	Reset(spec string) error
}

// FileStateStore keeps one plain-text integer file per spec. Spec names
// may contain slashes (billing/auth) and map to nested files. An absent
// file means zero attempts.
type FileStateStore struct {
	dir string
}

// NewFileStateStore stores counters below dir.
func NewFileStateStore(dir string) *FileStateStore {
	return &FileStateStore{dir: dir}
}

func (s *FileStateStore) path(spec string) (string, error) {
	rel := filepath.FromSlash(spec)
	if spec == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("invalid spec name %q", spec)
	}
	return filepath.Join(s.dir, rel), nil
}

// Load reads the counter for spec. LastAttempt is the file's
// modification time.
func (s *FileStateStore) Load(spec string) (AttemptState, error) {
	st := AttemptState{Spec: spec}
	path, err := s.path(spec)
	if err != nil {
		return st, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading attempt counter: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return st, fmt.Errorf("attempt counter %s holds %q, want a non-negative integer", path, strings.TrimSpace(string(data)))
	}
	st.Count = n
	if info, err := os.Stat(path); err == nil {
		st.LastAttempt = info.ModTime()
	}
	return st, nil
}

// Save writes st.Count. A zero count removes the file.
func (s *FileStateStore) Save(st AttemptState) error {
	if st.Count <= 0 {
		return s.Reset(st.Spec)
	}
	path, err := s.path(st.Spec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating attempts directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(st.Count)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing attempt counter: %w", err)
	}
	return nil
}

// Reset removes the counter for spec.
func (s *FileStateStore) Reset(spec string) error {
	path, err := s.path(spec)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("resetting attempt counter: %w", err)
	}
	return nil
}
