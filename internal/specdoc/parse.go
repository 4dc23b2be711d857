package specdoc

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section names, compared case-insensitively.
const (
	sectionChecks      = "checks"
	sectionFiles       = "files"
	sectionDescription = "description"
)

var (
	// checkItemRe splits a checklist line into prefix, glyph, separator
	// and text so the glyph can be rewritten in place.
	checkItemRe = regexp.MustCompile(`^(\s*[-*+]\s+\[)( |x|X|✓|✗)(\]\s*)(.*)$`)

	listItemRe  = regexp.MustCompile(`^\s*[-*+]\s+(.+)$`)
	metaRe      = regexp.MustCompile(`(?s)<!--\s*meta:\s*(.*?)\s*-->`)
	generatedRe = regexp.MustCompile(`<!--\s*generated via\s+(.+?)\s+v(\S+)\s+on\s+(.+?)\s*-->`)
)

// The parser configuration never changes, so one instance is shared.
var (
	parserOnce sync.Once
	parser     goldmark.Markdown
)

func markdown() goldmark.Markdown {
	parserOnce.Do(func() {
		parser = goldmark.New()
	})
	return parser
}

// heading is a top-level markdown heading located in the raw lines.
type heading struct {
	level int
	text  string
	line  int
}

// Document is a parsed spec document.
type Document struct {
	Path        string
	Title       string
	Description string
	Files       []string
	Checks      []CheckItem
	Meta        *Meta
	// MetaErr is set when a meta block exists but is invalid.
	MetaErr   error
	Generated *Generated

	lines       []string
	checksStart int // line index of the Checks heading
	checksEnd   int // exclusive
}

// Load reads and parses the spec at path. A missing file yields an
// error wrapping os.ErrNotExist.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	return Parse(path, data)
}

// Parse parses spec source. path is only used for error messages and Save.
func Parse(path string, src []byte) (*Document, error) {
	doc := &Document{
		Path:  path,
		lines: strings.Split(string(src), "\n"),
	}

	headings := findHeadings(src)
	metaLine := -1

	if m := metaRe.FindSubmatchIndex(src); m != nil {
		metaLine = lineOf(src, m[0])
		meta, err := ParseMeta(src[m[2]:m[3]])
		if err != nil {
			doc.MetaErr = &MetaError{Path: path, Err: err}
		} else {
			doc.Meta = meta
		}
	}
	if m := generatedRe.FindSubmatch(src); m != nil {
		doc.Generated = &Generated{Tool: string(m[1]), Version: string(m[2]), Date: string(m[3])}
	}

	checksFound := false
	for i, h := range headings {
		if h.level == 1 && doc.Title == "" {
			doc.Title = h.text
			continue
		}
		if h.level != 2 {
			continue
		}
		start, end := h.line, sectionEnd(headings, i, len(doc.lines))
		switch strings.ToLower(h.text) {
		case sectionChecks:
			if checksFound {
				return nil, fmt.Errorf("%s: %w", path, ErrDuplicateChecks)
			}
			checksFound = true
			if metaLine > start && metaLine < end {
				end = metaLine
			}
			doc.checksStart, doc.checksEnd = start, end
			doc.Checks = parseChecks(doc.lines, start+1, end)
		case sectionFiles:
			doc.Files = parseFiles(doc.lines, start+1, end)
		case sectionDescription:
			doc.Description = strings.TrimSpace(strings.Join(doc.lines[start+1:end], "\n"))
		}
	}

	if doc.Title == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoTitle)
	}
	if !checksFound {
		return nil, fmt.Errorf("%s: %w", path, ErrNoChecks)
	}
	return doc, nil
}

// findHeadings walks the top-level markdown blocks. Using the AST
// rather than a line regex keeps "## Checks" inside fenced code from
// being mistaken for the section.
func findHeadings(src []byte) []heading {
	root := markdown().Parser().Parse(text.NewReader(src))

	var out []heading
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		out = append(out, heading{
			level: h.Level,
			text:  strings.TrimSpace(string(seg.Value(src))),
			line:  lineOf(src, seg.Start),
		})
	}
	return out
}

// sectionEnd returns the line where the section opened by headings[i]
// ends: the next heading of level <= 2, or EOF.
func sectionEnd(headings []heading, i, eof int) int {
	for _, h := range headings[i+1:] {
		if h.level <= 2 {
			return h.line
		}
	}
	return eof
}

func lineOf(src []byte, offset int) int {
	return bytes.Count(src[:offset], []byte("\n"))
}

func parseChecks(lines []string, from, to int) []CheckItem {
	var items []CheckItem
	for i := from; i < to && i < len(lines); i++ {
		m := checkItemRe.FindStringSubmatch(strings.TrimRight(lines[i], "\r"))
		if m == nil {
			continue
		}
		txt := strings.TrimSpace(m[4])
		if txt == "" {
			continue
		}
		items = append(items, CheckItem{Text: txt, Status: statusFromGlyph(m[2]), Line: i})
	}
	return items
}

func parseFiles(lines []string, from, to int) []string {
	var files []string
	for i := from; i < to && i < len(lines); i++ {
		m := listItemRe.FindStringSubmatch(strings.TrimRight(lines[i], "\r"))
		if m == nil {
			continue
		}
		f := strings.Trim(strings.TrimSpace(m[1]), "`")
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

// --- Mutation and rendering ---

// Bytes renders the document. Untouched documents render byte-identical
// to their source.
func (d *Document) Bytes() []byte {
	return []byte(strings.Join(d.lines, "\n"))
}

// Save writes the rendered document back to Path.
func (d *Document) Save() error {
	if d.Path == "" {
		return errors.New("document has no path")
	}
	return os.WriteFile(d.Path, d.Bytes(), 0o644)
}

// SetStatus rewrites the checkbox glyph of item i in place.
func (d *Document) SetStatus(i int, s Status) {
	if i < 0 || i >= len(d.Checks) {
		return
	}
	item := &d.Checks[i]
	line := d.lines[item.Line]
	cr := strings.HasSuffix(line, "\r")
	m := checkItemRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return
	}
	rewritten := m[1] + s.Glyph() + m[3] + m[4]
	if cr {
		rewritten += "\r"
	}
	d.lines[item.Line] = rewritten
	item.Status = s
}

// ResetChecks sets every item back to unchecked.
func (d *Document) ResetChecks() {
	for i := range d.Checks {
		d.SetStatus(i, StatusUnchecked)
	}
}

// CheckTexts returns the text of every check item in order.
func (d *Document) CheckTexts() []string {
	out := make([]string, len(d.Checks))
	for i, c := range d.Checks {
		out[i] = c.Text
	}
	return out
}

// Lines returns a copy of the raw document lines.
func (d *Document) Lines() []string {
	return append([]string(nil), d.lines...)
}

// InsertionPoint returns the line index where new check items go:
// directly after the last existing item, or after the Checks heading
// when the section is empty. It also returns the list prefix
// ("- [" or "  * [") to reuse for new items.
func (d *Document) InsertionPoint() (int, string) {
	if n := len(d.Checks); n > 0 {
		last := d.Checks[n-1]
		m := checkItemRe.FindStringSubmatch(strings.TrimRight(d.lines[last.Line], "\r"))
		prefix := "- ["
		if m != nil {
			prefix = m[1]
		}
		return last.Line + 1, prefix
	}
	return d.checksStart + 1, "- ["
}

// ChecksRange returns the [start, end) line range of the Checks
// section, start being the heading line.
func (d *Document) ChecksRange() (int, int) {
	return d.checksStart, d.checksEnd
}

// CheckLine formats a new check item line.
func CheckLine(prefix, text string, s Status) string {
	return prefix + s.Glyph() + "] " + text
}
