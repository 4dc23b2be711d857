package bullets

import (
	"fmt"
	"regexp"
)

// Rule is one row of the static extraction table. Structural rules
// capture a name and render Template with it; keyword rules have no
// capture group and emit Template verbatim, at most once per file.
type Rule struct {
	Name     string
	Pattern  *regexp.Regexp
	Template string
}

// structural reports whether the rule renders a captured name.
func (r Rule) structural() bool {
	return r.Pattern.NumSubexp() > 0
}

// Templates shared by the structural rules.
const (
	FunctionTemplate = "%s function should handle its responsibilities correctly"
	RouteTemplate    = "%s route should be handled correctly"
	FlagTemplate     = "%s flag should be supported"
)

// DefaultRules is the built-in rule table, applied in order.
var DefaultRules = []Rule{
	// Declared functions and methods.
	{Name: "go-func", Pattern: regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*[\[(]`), Template: FunctionTemplate},
	{Name: "js-function", Pattern: regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s+([A-Za-z_$][\w$]*)\s*\(`), Template: FunctionTemplate},
	{Name: "js-arrow", Pattern: regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`), Template: FunctionTemplate},
	{Name: "js-method", Pattern: regexp.MustCompile(`(?m)^\s+(?:async\s+)?([A-Za-z_$][\w$]*)\s*\([^)]*\)\s*\{`), Template: FunctionTemplate},
	{Name: "py-def", Pattern: regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\(`), Template: FunctionTemplate},

	// Route and handler registrations.
	{Name: "route", Pattern: regexp.MustCompile(`\b(?:app|router|r|mux|server|api)\.(?:get|post|put|patch|delete|all|use|HandleFunc|Handle|GET|POST|PUT|PATCH|DELETE)\(\s*["'` + "`" + `](/[^"'` + "`" + `]*)["'` + "`" + `]`), Template: RouteTemplate},
	{Name: "py-route", Pattern: regexp.MustCompile(`@\w+\.(?:route|get|post|put|delete)\(\s*["'](/[^"']*)["']`), Template: RouteTemplate},

	// CLI flag declarations.
	{Name: "commander-flag", Pattern: regexp.MustCompile(`\.option\(\s*["'` + "`" + `](?:-\w,\s*)?(--[\w-]+)`), Template: FlagTemplate},
	{Name: "go-flag", Pattern: regexp.MustCompile(`\bflag\.(?:String|Bool|Int|Int64|Duration|Float64|Uint)(?:Var)?\(\s*(?:&\w+,\s*)?"([\w-]+)"`), Template: FlagTemplate},
	{Name: "cobra-flag", Pattern: regexp.MustCompile(`Flags\(\)\.\w+?(?:Var)?P?\(\s*(?:&\w+,\s*)?"([\w-]+)"`), Template: FlagTemplate},
	{Name: "argparse-flag", Pattern: regexp.MustCompile(`add_argument\(\s*["'](--[\w-]+)["']`), Template: FlagTemplate},

	// Generic behavioural keywords.
	{Name: "console-output", Pattern: regexp.MustCompile(`console\.log\(|fmt\.Print|\bprint\(`), Template: "display output to the console"},
	{Name: "file-write", Pattern: regexp.MustCompile(`writeFile(?:Sync)?\(|os\.WriteFile\(|os\.Create\(|fs\.createWriteStream\(|open\([^)]*["']w`), Template: "write results to files"},
	{Name: "schema-validation", Pattern: regexp.MustCompile(`(?i)\b(?:ajv|zod|joi|jsonschema|schema\.validate|validateschema)\b`), Template: "validate input against a schema"},
	{Name: "error-logging", Pattern: regexp.MustCompile(`console\.error\(|logger\.error\(|log\.Error|\.Error\(\s*"|logging\.error\(`), Template: "log errors"},
	{Name: "token-generation", Pattern: regexp.MustCompile(`randomBytes\(|crypto/rand|jwt\.sign\(|secrets\.token_|generateToken|uuid\.New|randomUUID\(`), Template: "generate secure tokens"},
}

// ignoredNames are declarations too generic to describe behaviour.
var ignoredNames = map[string]bool{
	"main": true, "init": true, "constructor": true,
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "function": true, "return": true,
	"__init__": true, "__str__": true, "__repr__": true,
}

// ApplyRules runs every rule over one file's content and returns the
// bullets in rule order, deduplicated.
func ApplyRules(rules []Rule, source, content string) []Bullet {
	var out []Bullet
	for _, r := range rules {
		if !r.structural() {
			if r.Pattern.MatchString(content) {
				out = append(out, Bullet{Text: r.Template, Origin: OriginImpl, Source: source})
			}
			continue
		}
		for _, m := range r.Pattern.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if ignoredNames[name] {
				continue
			}
			out = append(out, Bullet{Text: fmt.Sprintf(r.Template, name), Origin: OriginImpl, Source: source})
		}
	}
	return dedupe(out)
}
