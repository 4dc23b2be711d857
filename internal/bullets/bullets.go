// Package bullets turns spec checklists and source files into comparable
// "action bullets": short imperative phrases ("verb + object").
//
// Spec bullets come straight from the Checks section. Implementation
// bullets come from an ordered rule table of (pattern, template) pairs
// applied to the referenced source files, with an external summarizer
// as fallback (or as the primary source under the summarize strategy).
package bullets

import (
	"strings"
	"unicode"

	"github.com/HendryAvila/specsync/internal/specdoc"
)

// Origin tags where a bullet was derived from.
type Origin string

const (
	OriginSpec Origin = "spec"
	OriginImpl Origin = "implementation"
)

// Bullet is one normalized-comparable action phrase.
type Bullet struct {
	Text   string `json:"text"`
	Origin Origin `json:"origin"`
	// Source is the file (implementation) or spec path the bullet came from.
	Source string `json:"source,omitempty"`
}

// Key is the normalized form used for equality.
func (b Bullet) Key() string {
	return Normalize(b.Text)
}

// Normalize lowercases, collapses whitespace runs, strips trailing
// punctuation and trims. It is idempotent.
func Normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// FromSpec extracts the spec-side bullets of a document, in check order.
func FromSpec(doc *specdoc.Document) []Bullet {
	out := make([]Bullet, 0, len(doc.Checks))
	for _, c := range doc.Checks {
		t := strings.TrimSpace(c.Text)
		if t == "" {
			continue
		}
		out = append(out, Bullet{Text: t, Origin: OriginSpec, Source: doc.Path})
	}
	return out
}

// Texts returns the raw text of each bullet.
func Texts(bs []Bullet) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Text
	}
	return out
}

// dedupe keeps the first bullet for each normalized key.
func dedupe(bs []Bullet) []Bullet {
	seen := make(map[string]bool, len(bs))
	out := bs[:0]
	for _, b := range bs {
		k := b.Key()
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return out
}
