package bullets

import (
	"context"
	"regexp"
	"strings"
)

// Summarizer is the external text-summarization capability. It receives
// a complete prompt and returns the model's raw text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerFunc adapts a plain function to Summarizer.
type SummarizerFunc func(ctx context.Context, prompt string) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// SummaryPrompt is prepended to the concatenated source text.
const SummaryPrompt = `You are reviewing source code to list the behaviours it implements.
Output one bullet per line and nothing else.
Each bullet is a short imperative phrase in "verb + object" form, for example:
- validate user credentials
- generate secure token for authentication
Do not explain your reasoning, do not add headings, do not number the lines.

Source code:
`

// BuildPrompt concatenates file contents under path headers.
func BuildPrompt(files []SourceFile) string {
	var sb strings.Builder
	sb.WriteString(SummaryPrompt)
	for _, f := range files {
		sb.WriteString("\n--- ")
		sb.WriteString(f.Path)
		sb.WriteString(" ---\n")
		sb.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// stopVerbs are leading words of bullets that describe mechanics, not
// behaviour.
var stopVerbs = map[string]bool{
	"return": true, "returns": true,
	"print": true, "prints": true,
	"log": true, "logs": true,
	"console": true,
}

// preambleRe matches chatter a model puts around the list.
var preambleRe = regexp.MustCompile(`(?i)^(here (are|is)|sure\b|certainly\b|okay\b|ok,|based on|the (code|following|source)|this (code|file|module)|i (will|have|think|can)|let me|note:|reasoning|thought|analysis|summary|bullets?:|in summary)`)

var (
	listMarkerRe = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+`)
	thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// ParseSummary turns summarizer output into bullet texts: one per line,
// list markers stripped, preamble/reasoning lines and stop-verb bullets
// discarded.
func ParseSummary(output string) []string {
	output = thinkBlockRe.ReplaceAllString(output, "")

	var out []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.TrimSpace(listMarkerRe.ReplaceAllString(line, ""))
		line = strings.Trim(line, "*_`")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") || preambleRe.MatchString(line) {
			continue
		}
		first := strings.ToLower(strings.Fields(line)[0])
		first = strings.TrimRight(first, ".,:;")
		if stopVerbs[first] {
			continue
		}
		out = append(out, line)
	}
	return out
}
