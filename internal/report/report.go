// Package report renders reconciliation and integrity results for the
// terminal. Colors are dropped automatically when the writer is not a TTY.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/match"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

// Palette.
var (
	colorPass    = lipgloss.Color("#8BC34A")
	colorFail    = lipgloss.Color("#e53935")
	colorWarn    = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#8a94a6")
	colorHeading = lipgloss.Color("#f2f2f2")
)

// Printer writes styled output to one writer.
type Printer struct {
	w       io.Writer
	heading lipgloss.Style
	pass    lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
	info    lipgloss.Style
	muted   lipgloss.Style
}

// New creates a Printer for w. The color profile is detected from w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(colorHeading),
		pass:    r.NewStyle().Bold(true).Foreground(colorPass),
		fail:    r.NewStyle().Bold(true).Foreground(colorFail),
		warn:    r.NewStyle().Foreground(colorWarn),
		info:    r.NewStyle().Foreground(colorInfo),
		muted:   r.NewStyle().Foreground(colorMuted),
	}
}

func (p *Printer) status(s reconcile.Status) string {
	switch s {
	case reconcile.StatusPass:
		return p.pass.Render(string(s))
	case reconcile.StatusExhausted:
		return p.fail.Render(string(s))
	default:
		return p.warn.Bold(true).Render(string(s))
	}
}

// Report prints one reconciliation report.
func (p *Printer) Report(rep *reconcile.Report) {
	var b strings.Builder

	title := rep.Title
	if title == "" {
		title = rep.Spec
	}
	fmt.Fprintf(&b, "%s %s\n", p.heading.Render(title), p.muted.Render("("+rep.Path+")"))
	fmt.Fprintf(&b, "%s  %d matched, %d missing in code, %d missing in spec\n",
		p.status(rep.Status),
		len(rep.Match.Matches), len(rep.Match.MissingInCode), len(rep.Match.MissingInSpec))

	if len(rep.Selection.Files) > 0 {
		fmt.Fprintf(&b, "%s %s\n", p.muted.Render("files ("+rep.Selection.Reason+"):"), strings.Join(rep.Selection.Files, ", "))
	}
	if rep.Summarized {
		note := "implementation bullets summarized"
		if rep.CacheHit {
			note += " (cached)"
		}
		fmt.Fprintln(&b, p.muted.Render(note))
	}

	if len(rep.Match.Matches) > 0 {
		fmt.Fprintln(&b)
		for _, m := range rep.Match.Matches {
			p.pair(&b, m)
		}
	}
	if len(rep.Match.MissingInCode) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, p.heading.Render("Missing in code"))
		for _, bl := range rep.Match.MissingInCode {
			fmt.Fprintf(&b, "  %s %s\n", p.fail.Render("✗"), bl.Text)
		}
	}
	if len(rep.Match.MissingInSpec) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, p.heading.Render("Missing in spec"))
		appended := make(map[string]bool, len(rep.Appended))
		for _, a := range rep.Appended {
			appended[a] = true
		}
		for _, bl := range rep.Match.MissingInSpec {
			suffix := ""
			if appended[bl.Text] {
				suffix = " " + p.info.Render("(appended)")
			}
			fmt.Fprintf(&b, "  %s %s%s\n", p.warn.Render("+"), bl.Text, suffix)
		}
	}

	if len(rep.Warnings) > 0 {
		fmt.Fprintln(&b)
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "%s %s\n", p.warn.Render("warning:"), w)
		}
	}
	if rep.MaxAttempts > 0 {
		fmt.Fprintln(&b, p.muted.Render(attemptLine(rep.Attempt, rep.MaxAttempts)))
	}
	_, _ = io.WriteString(p.w, b.String())
}

func (p *Printer) pair(b *strings.Builder, m match.Pair) {
	fmt.Fprintf(b, "  %s %s", p.pass.Render("✓"), m.Spec.Text)
	if m.Impl.Text != m.Spec.Text {
		fmt.Fprintf(b, " %s %s", p.muted.Render("⇄"), m.Impl.Text)
	}
	label := string(m.Kind)
	if m.Key != "" && m.Kind != match.KindExact {
		label += ":" + m.Key
	}
	fmt.Fprintf(b, " %s\n", p.muted.Render("["+label+"]"))
}

// Integrity prints a snapshot comparison. The tamper marker is printed on
// its own line whenever something differs so scripts can grep for it.
func (p *Printer) Integrity(res *snapshot.Result) {
	var b strings.Builder
	switch {
	case res.Baseline:
		fmt.Fprintln(&b, p.info.Render("no snapshot found, baseline created"))
	case res.OK():
		fmt.Fprintln(&b, p.pass.Render("specs unchanged since the last snapshot"))
	default:
		fmt.Fprintln(&b, p.fail.Render(snapshot.TamperMarker))
		for _, f := range res.Changed {
			fmt.Fprintf(&b, "  %s %s\n", p.warn.Render("changed"), f)
		}
		for _, f := range res.Added {
			fmt.Fprintf(&b, "  %s %s\n", p.info.Render("added  "), f)
		}
		for _, f := range res.Deleted {
			fmt.Fprintf(&b, "  %s %s\n", p.fail.Render("deleted"), f)
		}
	}
	_, _ = io.WriteString(p.w, b.String())
}

// Snapshot prints a summary of a freshly created snapshot.
func (p *Printer) Snapshot(snap *snapshot.Snapshot, path string) {
	fmt.Fprintf(p.w, "%s %d spec files %s\n",
		p.pass.Render("snapshot written:"), snap.TotalFiles, p.muted.Render("("+path+")"))
}

// Attempts prints an attempt counter.
func (p *Printer) Attempts(st autofix.AttemptState, budget int) {
	line := fmt.Sprintf("%s: %s", st.Spec, attemptLine(st, budget))
	if !st.LastAttempt.IsZero() {
		line += p.muted.Render(", last " + st.LastAttempt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(p.w, line)
}

func attemptLine(st autofix.AttemptState, budget int) string {
	return fmt.Sprintf("attempt %d/%d", st.Count, budget)
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
