// Package mutator appends discovered bullets to a spec's Checks section.
//
// Only lines are inserted: existing items are never removed, reordered
// or rewritten, and nothing outside the Checks section changes.
package mutator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/specsync/internal/bullets"
	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/specdoc"
	"go.uber.org/zap"
)

// Prompter asks whether a single bullet should be added to the spec.
type Prompter interface {
	Confirm(ctx context.Context, specPath string, b bullets.Bullet) (bool, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, specPath string, b bullets.Bullet) (bool, error)

// Confirm calls f.
func (f PrompterFunc) Confirm(ctx context.Context, specPath string, b bullets.Bullet) (bool, error) {
	return f(ctx, specPath, b)
}

// Outcome lists what happened to each candidate bullet.
type Outcome struct {
	Appended  []string `json:"appended"`
	Declined  []string `json:"declined,omitempty"`
	Duplicate []string `json:"duplicate,omitempty"`
}

// Mutator writes new check items into spec files.
type Mutator struct {
	logger *zap.Logger
}

// New creates a Mutator.
func New(logger *zap.Logger) *Mutator {
	return &Mutator{logger: logging.OrNop(logger)}
}

// AppendChecks adds one unchecked item per bullet to the spec at path.
//
// With a nil prompter every bullet is appended in a single write. With a
// prompter each bullet is confirmed individually, and every accepted
// bullet is applied as its own read-modify-write so edits made on disk
// between prompts are preserved. Bullets already present (by normalized
// text) are skipped.
func (m *Mutator) AppendChecks(ctx context.Context, path string, missing []bullets.Bullet, prompter Prompter) (*Outcome, error) {
	out := &Outcome{}
	if len(missing) == 0 {
		return out, nil
	}

	if prompter == nil {
		texts := make([]string, len(missing))
		for i, b := range missing {
			texts[i] = b.Text
		}
		added, dup, err := m.apply(path, texts)
		if err != nil {
			return out, err
		}
		out.Appended, out.Duplicate = added, dup
		return out, nil
	}

	for _, b := range missing {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ok, err := prompter.Confirm(ctx, path, b)
		if err != nil {
			return out, fmt.Errorf("confirming %q: %w", b.Text, err)
		}
		if !ok {
			out.Declined = append(out.Declined, b.Text)
			continue
		}
		added, dup, err := m.apply(path, []string{b.Text})
		if err != nil {
			return out, err
		}
		out.Appended = append(out.Appended, added...)
		out.Duplicate = append(out.Duplicate, dup...)
	}
	return out, nil
}

// apply re-reads path, splices texts in and writes the result when
// anything was added.
func (m *Mutator) apply(path string, texts []string) (added, dup []string, err error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading spec: %w", err)
	}
	updated, added, dup, err := Splice(path, src, texts)
	if err != nil {
		return nil, nil, err
	}
	if len(added) == 0 {
		return nil, dup, nil
	}
	if err := os.WriteFile(path, updated, 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing spec: %w", err)
	}
	m.logger.Info("appended check items", zap.String("spec", path), zap.Strings("items", added))
	return added, dup, nil
}

// Splice returns src with one unchecked item per text inserted after the
// last existing item of the Checks section. Texts whose normalized form
// is already present, or repeated within texts, are reported as dup.
func Splice(path string, src []byte, texts []string) (updated []byte, added, dup []string, err error) {
	doc, err := specdoc.Parse(path, src)
	if err != nil {
		return nil, nil, nil, err
	}

	present := make(map[string]bool, len(doc.Checks))
	for _, c := range doc.Checks {
		present[bullets.Normalize(c.Text)] = true
	}

	at, prefix := doc.InsertionPoint()
	lines := doc.Lines()
	eol := ""
	if at > 0 && strings.HasSuffix(lines[at-1], "\r") {
		eol = "\r"
	}

	var inserted []string
	for _, t := range texts {
		t = strings.TrimSpace(t)
		key := bullets.Normalize(t)
		if key == "" {
			continue
		}
		if present[key] {
			dup = append(dup, t)
			continue
		}
		present[key] = true
		added = append(added, t)
		inserted = append(inserted, specdoc.CheckLine(prefix, t, specdoc.StatusUnchecked)+eol)
	}
	if len(inserted) == 0 {
		return src, nil, dup, nil
	}

	// A document without a trailing newline ends on the Checks heading or
	// last item; keep the inserted lines on their own lines.
	if at >= len(lines) {
		lines = append(lines, inserted...)
	} else {
		lines = append(lines[:at], append(inserted, lines[at:]...)...)
	}
	return []byte(strings.Join(lines, "\n")), added, dup, nil
}
