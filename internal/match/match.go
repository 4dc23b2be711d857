// Package match classifies spec and implementation bullets as matched,
// missing from code or missing from spec.
//
// Matching runs in ordered passes, each considering only bullets not yet
// consumed by an earlier pass:
//
//  1. exact: equal normalized text
//  2. subject: bullets sharing a subject ("the X function should…",
//     "the server should…", or a configured bridge)
//  3. fallback: hand-written synonym clusters
//
// Whatever is left over is reported as missing. Every spec bullet ends up
// in exactly one of Matches or MissingInCode, and every implementation
// bullet in exactly one of Matches or MissingInSpec. The result is a pure
// function of the inputs and the rule table.
package match

import (
	"slices"

	"github.com/HendryAvila/specsync/internal/bullets"
)

// Kind names the pass that produced a pair.
type Kind string

const (
	KindExact    Kind = "exact"
	KindSubject  Kind = "subject"
	KindFallback Kind = "fallback"
)

// Pair is one spec bullet satisfied by one implementation bullet.
type Pair struct {
	Spec bullets.Bullet `json:"spec"`
	Impl bullets.Bullet `json:"impl"`
	Kind Kind           `json:"kind"`
	// Key is the subject or cluster name for non-exact pairs.
	Key string `json:"key,omitempty"`
	// SpecIndex and ImplIndex are the input positions of the pair.
	SpecIndex int `json:"-"`
	ImplIndex int `json:"-"`
}

// Result is the outcome of one matching run. Matches are ordered by spec
// bullet position.
type Result struct {
	Matches       []Pair           `json:"matches"`
	MissingInCode []bullets.Bullet `json:"missing_in_code"`
	MissingInSpec []bullets.Bullet `json:"missing_in_spec"`
}

// Clean reports whether nothing is missing on either side.
func (r Result) Clean() bool {
	return len(r.MissingInCode) == 0 && len(r.MissingInSpec) == 0
}

// Engine matches bullet lists with a fixed rule table.
type Engine struct {
	rules Rules
	index *subjectIndex
}

// New creates an Engine for rules.
func New(rules Rules) *Engine {
	return &Engine{rules: rules, index: newSubjectIndex(rules)}
}

var defaultEngine = New(DefaultRules())

// Match runs the default engine.
func Match(spec, impl []bullets.Bullet) Result {
	return defaultEngine.Match(spec, impl)
}

// item is a bullet with its precomputed normalized key and subjects.
type item struct {
	b        bullets.Bullet
	key      string
	subjects []string
}

// run holds the mutable state of one Match call.
type run struct {
	spec, impl   []item
	specPair     []int // spec index -> index into pairs, or -1
	implConsumed []bool
	pairs        []Pair
}

// Match classifies spec against impl. Inputs are not modified.
func (e *Engine) Match(spec, impl []bullets.Bullet) Result {
	r := &run{
		spec:         e.prepare(spec),
		impl:         e.prepare(impl),
		specPair:     make([]int, len(spec)),
		implConsumed: make([]bool, len(impl)),
	}
	for i := range r.specPair {
		r.specPair[i] = -1
	}

	r.exactPass()
	r.subjectPass()
	r.fallbackPass(e.rules.Fallbacks)

	return r.result()
}

func (e *Engine) prepare(bs []bullets.Bullet) []item {
	out := make([]item, len(bs))
	for i, b := range bs {
		key := b.Key()
		out[i] = item{b: b, key: key, subjects: e.index.subjects(key, b.Origin)}
	}
	return out
}

func (r *run) pair(si, ii int, kind Kind, key string) {
	r.specPair[si] = len(r.pairs)
	r.implConsumed[ii] = true
	r.pairs = append(r.pairs, Pair{
		Spec: r.spec[si].b, Impl: r.impl[ii].b,
		Kind: kind, Key: key,
		SpecIndex: si, ImplIndex: ii,
	})
}

// exactPass pairs each spec bullet with the first unconsumed
// implementation bullet of the same key.
func (r *run) exactPass() {
	queue := make(map[string][]int)
	for i, it := range r.impl {
		queue[it.key] = append(queue[it.key], i)
	}
	for si, it := range r.spec {
		q := queue[it.key]
		if len(q) == 0 {
			continue
		}
		r.pair(si, q[0], KindExact, "")
		queue[it.key] = q[1:]
	}
}

// subjectPass pairs, for every subject present on both sides, the first
// unmatched spec bullet with the first unmatched implementation bullet.
// Subjects are visited in order of first appearance on the spec side.
func (r *run) subjectPass() {
	var order []string
	seen := make(map[string]bool)
	for si, it := range r.spec {
		if r.specPair[si] >= 0 {
			continue
		}
		for _, s := range it.subjects {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}

	for _, subject := range order {
		si := r.firstSpec(func(it item) bool { return slices.Contains(it.subjects, subject) })
		if si < 0 {
			continue
		}
		ii := r.firstImpl(func(it item) bool { return slices.Contains(it.subjects, subject) })
		if ii < 0 {
			continue
		}
		r.pair(si, ii, KindSubject, subject)
	}
}

// fallbackPass applies each cluster to every still-unmatched spec bullet.
func (r *run) fallbackPass(clusters []Cluster) {
	for _, c := range clusters {
		for si, it := range r.spec {
			if r.specPair[si] >= 0 || !c.Spec.matches(it.key) {
				continue
			}
			ii := r.firstImpl(func(it item) bool {
				if c.Impl.matches(it.key) {
					return true
				}
				for _, s := range c.ImplSubjects {
					if slices.Contains(it.subjects, s) {
						return true
					}
				}
				return false
			})
			if ii < 0 {
				continue
			}
			r.pair(si, ii, KindFallback, c.Name)
		}
	}
}

func (r *run) firstSpec(pred func(item) bool) int {
	for i, it := range r.spec {
		if r.specPair[i] < 0 && pred(it) {
			return i
		}
	}
	return -1
}

func (r *run) firstImpl(pred func(item) bool) int {
	for i, it := range r.impl {
		if !r.implConsumed[i] && pred(it) {
			return i
		}
	}
	return -1
}

func (r *run) result() Result {
	res := Result{
		Matches:       make([]Pair, 0, len(r.pairs)),
		MissingInCode: []bullets.Bullet{},
		MissingInSpec: []bullets.Bullet{},
	}
	for si, it := range r.spec {
		if p := r.specPair[si]; p >= 0 {
			res.Matches = append(res.Matches, r.pairs[p])
		} else {
			res.MissingInCode = append(res.MissingInCode, it.b)
		}
	}
	for ii, it := range r.impl {
		if !r.implConsumed[ii] {
			res.MissingInSpec = append(res.MissingInSpec, it.b)
		}
	}
	return res
}
