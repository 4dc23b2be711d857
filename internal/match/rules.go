package match

import (
	"regexp"
	"strings"

	"github.com/HendryAvila/specsync/internal/bullets"
	"github.com/HendryAvila/specsync/internal/config"
)

// Bridge indexes any bullet whose normalized text contains every term
// under Subject.
type Bridge struct {
	Subject string
	Terms   []string
}

func (b Bridge) matches(text string) bool {
	if len(b.Terms) == 0 {
		return false
	}
	for _, t := range b.Terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

// Alias additionally indexes an implementation bullet with subject From
// under subject To.
type Alias struct {
	From string
	To   string
}

// Terms is a containment test: every All term and, when Any is
// non-empty, at least one Any term must appear.
type Terms struct {
	All []string
	Any []string
}

func (t Terms) matches(text string) bool {
	if len(t.All) == 0 && len(t.Any) == 0 {
		return false
	}
	for _, s := range t.All {
		if !strings.Contains(text, s) {
			return false
		}
	}
	if len(t.Any) == 0 {
		return true
	}
	for _, s := range t.Any {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

// Cluster is one synonym cluster for the fallback pass. An unmatched
// spec bullet satisfying Spec pairs with the first unmatched
// implementation bullet satisfying Impl or indexed under one of
// ImplSubjects.
type Cluster struct {
	Name         string
	Spec         Terms
	Impl         Terms
	ImplSubjects []string
}

// Rules is the synonym table driving the subject-keyed and fallback
// passes.
type Rules struct {
	// Components are the fixed keywords recognised in "the X should…".
	Components []string
	Bridges    []Bridge
	Aliases    []Alias
	Fallbacks  []Cluster
}

// DefaultRules returns the built-in table.
func DefaultRules() Rules {
	return Rules{
		Components: []string{"server", "cli", "api", "database", "cache", "config"},
		Bridges: []Bridge{
			{Subject: "server-port", Terms: []string{"server", "listen"}},
			{Subject: "server-token", Terms: []string{"server", "generate"}},
		},
		Aliases: []Alias{
			{From: "authenticate", To: "server-token"},
			{From: "createserver", To: "server-port"},
		},
		Fallbacks: []Cluster{
			{
				Name:         "auth-token",
				Spec:         Terms{All: []string{"generate"}, Any: []string{"token", "secure"}},
				Impl:         Terms{All: []string{"generate"}, Any: []string{"token", "secure", "auth"}},
				ImplSubjects: []string{"server-token"},
			},
		},
	}
}

// WithConfig returns a copy of r extended by the bridges and aliases of
// cfg. Configured entries are consulted after the built-in ones.
func (r Rules) WithConfig(cfg config.MatchingConfig) Rules {
	out := Rules{
		Components: append([]string(nil), r.Components...),
		Bridges:    append([]Bridge(nil), r.Bridges...),
		Aliases:    append([]Alias(nil), r.Aliases...),
		Fallbacks:  append([]Cluster(nil), r.Fallbacks...),
	}
	for _, b := range cfg.Bridges {
		terms := make([]string, 0, len(b.Terms))
		for _, t := range b.Terms {
			if t = bullets.Normalize(t); t != "" {
				terms = append(terms, t)
			}
		}
		subject := bullets.Normalize(b.Subject)
		if subject == "" || len(terms) == 0 {
			continue
		}
		out.Bridges = append(out.Bridges, Bridge{Subject: subject, Terms: terms})
	}
	for _, a := range cfg.Aliases {
		from, to := bullets.Normalize(a.From), bullets.Normalize(a.To)
		if from == "" || to == "" {
			continue
		}
		out.Aliases = append(out.Aliases, Alias{From: from, To: to})
	}
	return out
}

var unitSubjectRe = regexp.MustCompile(`(?:^|\bthe\s+)([\w$.-]+)\s+(?:function|method)\s+should\b`)

// subjectIndex extracts subjects from normalized bullet text.
type subjectIndex struct {
	rules       Rules
	componentRe *regexp.Regexp
	aliases     map[string][]string
}

func newSubjectIndex(r Rules) *subjectIndex {
	idx := &subjectIndex{rules: r, aliases: make(map[string][]string)}
	if len(r.Components) > 0 {
		quoted := make([]string, len(r.Components))
		for i, c := range r.Components {
			quoted[i] = regexp.QuoteMeta(strings.ToLower(c))
		}
		idx.componentRe = regexp.MustCompile(`(?:^|\bthe\s+)(` + strings.Join(quoted, "|") + `)\s+should\b`)
	}
	for _, a := range r.Aliases {
		idx.aliases[a.From] = append(idx.aliases[a.From], a.To)
	}
	return idx
}

// subjects returns the ordered, distinct subjects of a normalized bullet:
// bridge subjects first, then the function/method name, then a
// component keyword. Implementation bullets also receive alias targets.
func (idx *subjectIndex) subjects(text string, origin bullets.Origin) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, b := range idx.rules.Bridges {
		if b.matches(text) {
			add(b.Subject)
		}
	}
	if m := unitSubjectRe.FindStringSubmatch(text); m != nil {
		add(m[1])
	}
	if idx.componentRe != nil {
		if m := idx.componentRe.FindStringSubmatch(text); m != nil {
			add(m[1])
		}
	}

	if origin == bullets.OriginImpl {
		for i := 0; i < len(out); i++ {
			for _, to := range idx.aliases[out[i]] {
				add(to)
			}
		}
	}
	return out
}
