package bullets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/HendryAvila/specsync/internal/specdoc"
)

// Selection records which files extraction should read and why.
type Selection struct {
	Files  []string `json:"files"`
	Reason string   `json:"reason"` // files-section | meta | relevance | none
}

// ignoreDirs are directories skipped during repository walks.
var ignoreDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	"vendor": true, "dist": true, "build": true, "target": true,
	".next": true, ".nuxt": true, "venv": true, ".venv": true,
	".idea": true, ".vscode": true, "coverage": true,
	".cache": true, ".tmp": true, ".terraform": true,
}

// sourceExts are the file extensions considered implementation files.
var sourceExts = map[string]bool{
	".go": true, ".js": true, ".mjs": true, ".cjs": true, ".jsx": true,
	".ts": true, ".tsx": true, ".py": true, ".rb": true, ".rs": true,
	".java": true, ".kt": true, ".cs": true, ".php": true, ".swift": true,
}

// SelectFiles picks the implementation files for a spec: the Files
// section, else the meta block's file list, else up to maxFiles files
// ranked by keyword overlap with the spec title. skip names extra
// directories (relative to projectRoot) to leave out of the walk.
func SelectFiles(doc *specdoc.Document, projectRoot string, maxFiles int, skip ...string) Selection {
	if len(doc.Files) > 0 {
		return Selection{Files: doc.Files, Reason: "files-section"}
	}
	if doc.Meta != nil && len(doc.Meta.Files) > 0 {
		return Selection{Files: doc.Meta.Files, Reason: "meta"}
	}
	files := RelevantFiles(projectRoot, doc.Title, maxFiles, skip...)
	if len(files) == 0 {
		return Selection{Reason: "none"}
	}
	return Selection{Files: files, Reason: "relevance"}
}

// RelevantFiles walks projectRoot and returns up to limit source files
// whose relative path shares the most keywords with title. Files with
// no overlap are never returned.
func RelevantFiles(projectRoot, title string, limit int, skip ...string) []string {
	keywords := extractKeywords(title)
	if len(keywords) == 0 || limit <= 0 {
		return nil
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[filepath.Clean(s)] = true
	}

	type scored struct {
		path  string
		score int
	}
	var matches []scored

	_ = filepath.WalkDir(projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // graceful degradation
		}
		rel, relErr := filepath.Rel(projectRoot, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if ignoreDirs[d.Name()] || skipped[rel] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExts[strings.ToLower(filepath.Ext(path))] || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		lower := strings.ToLower(filepath.ToSlash(rel))
		score := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{path: filepath.ToSlash(rel), score: score})
		}
		return nil
	})

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].path < matches[j].path
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.path
	}
	return out
}

// extractKeywords splits a title into lowercase keywords, dropping
// short words and stop words.
func extractKeywords(title string) []string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var keywords []string
	for _, w := range words {
		if len(w) < 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

// stopWords is a set of common words filtered from keyword matching.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "was": true,
	"our": true, "out": true, "has": true, "its": true, "may": true,
	"get": true, "how": true, "new": true, "now": true, "use": true,
	"that": true, "with": true, "have": true, "this": true, "will": true,
	"your": true, "from": true, "they": true, "been": true, "each": true,
	"which": true, "their": true, "there": true, "about": true, "would": true,
	"make": true, "like": true, "into": true, "than": true, "them": true,
	"then": true, "some": true, "what": true, "when": true, "should": true,
	"feature": true, "spec": true, "support": true,
}
