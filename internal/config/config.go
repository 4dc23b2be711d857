// Package config resolves the specsync project layout and loads the
// optional .specsync/config.yaml settings file.
//
// Settings come from three layers, later layers winning:
//   - built-in defaults (Default)
//   - .specsync/config.yaml
//   - environment variables (a project-level .env is loaded first)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// StateDir is the per-project directory holding specsync state.
	StateDir = ".specsync"
	// ConfigFile is the settings filename inside StateDir.
	ConfigFile = "config.yaml"
	// SnapshotFile is the integrity snapshot filename inside StateDir.
	SnapshotFile = "snapshot.json"
	// AttemptsDir holds one fix-attempt counter file per spec.
	AttemptsDir = "attempts"
	// CacheFile is the summary cache database inside StateDir.
	CacheFile = "cache.db"
	// DefaultSpecsDir is where spec documents live unless configured otherwise.
	DefaultSpecsDir = "specs"
	// SpecExt is the extension of spec documents.
	SpecExt = ".md"

	DefaultMaxAttempts = 5
	DefaultMaxFiles    = 5
	DefaultModel       = "gemini-2.5-flash"
)

// ErrOutsideSpecsDir is returned for spec references that resolve
// outside the specs directory. Only files there are guarded by the
// snapshot.
var ErrOutsideSpecsDir = errors.New("spec is outside the specs directory")

// Strategy selects how implementation bullets are produced.
type Strategy string

const (
	// StrategyStatic runs the rule table first and only asks the
	// summarizer when the rules find nothing.
	StrategyStatic Strategy = "static"
	// StrategySummarize makes the summarizer the primary source.
	StrategySummarize Strategy = "summarize"
)

// Config is the root settings structure, persisted as config.yaml.
type Config struct {
	SpecsDir   string           `yaml:"specs_dir"`
	AutoFix    AutoFixConfig    `yaml:"autofix"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Matching   MatchingConfig   `yaml:"matching"`
	Integrity  IntegrityConfig  `yaml:"integrity"`
}

// AutoFixConfig bounds the auto-fix loop.
type AutoFixConfig struct {
	// MaxAttempts is the fix budget per spec. Zero or an absent key
	// selects DefaultMaxAttempts.
	MaxAttempts int `yaml:"max_attempts"`
	// Command is executed once per attempt with the spec path and the
	// referenced files appended as arguments. Empty disables fixing.
	Command []string `yaml:"command"`
}

// ExtractionConfig tunes implementation-side bullet extraction.
type ExtractionConfig struct {
	Strategy Strategy `yaml:"strategy"`
	MaxFiles int      `yaml:"max_files"`
}

// SummarizerConfig configures the external summarization model.
// The API key is never read from the YAML file.
type SummarizerConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"-"`
}

// MatchingConfig carries extra subject bridges for the matching engine.
type MatchingConfig struct {
	Bridges []BridgeConfig `yaml:"bridges"`
	Aliases []AliasConfig  `yaml:"aliases"`
}

// BridgeConfig maps bullets containing every term to a shared subject.
type BridgeConfig struct {
	Subject string   `yaml:"subject"`
	Terms   []string `yaml:"terms"`
}

// AliasConfig indexes an implementation subject under a second subject.
type AliasConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// IntegrityConfig controls the snapshot guard.
type IntegrityConfig struct {
	// Strict refuses reconciliation when the snapshot detects edits.
	Strict bool `yaml:"strict"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SpecsDir: DefaultSpecsDir,
		AutoFix: AutoFixConfig{
			MaxAttempts: DefaultMaxAttempts,
		},
		Extraction: ExtractionConfig{
			Strategy: StrategyStatic,
			MaxFiles: DefaultMaxFiles,
		},
		Summarizer: SummarizerConfig{
			Model: DefaultModel,
		},
	}
}

// --- Path helpers ---

// StatePath returns the absolute path to the .specsync/ directory.
func StatePath(projectRoot string) string {
	return filepath.Join(projectRoot, StateDir)
}

// ConfigPath returns the absolute path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(StatePath(projectRoot), ConfigFile)
}

// SnapshotPath returns the absolute path to snapshot.json.
func SnapshotPath(projectRoot string) string {
	return filepath.Join(StatePath(projectRoot), SnapshotFile)
}

// CachePath returns the absolute path to the summary cache database.
func CachePath(projectRoot string) string {
	return filepath.Join(StatePath(projectRoot), CacheFile)
}

// AttemptsPath returns the counter file for one spec.
func AttemptsPath(projectRoot, specName string) string {
	return filepath.Join(StatePath(projectRoot), AttemptsDir, specName)
}

// SpecsPath returns the absolute path to the specs directory.
func (c *Config) SpecsPath(projectRoot string) string {
	if filepath.IsAbs(c.SpecsDir) {
		return c.SpecsDir
	}
	return filepath.Join(projectRoot, c.SpecsDir)
}

// SpecPath resolves a spec name ("auth" or "auth.md") to its file.
func (c *Config) SpecPath(projectRoot, name string) string {
	if !strings.HasSuffix(name, SpecExt) {
		name += SpecExt
	}
	return filepath.Join(c.SpecsPath(projectRoot), name)
}

// ResolveSpec resolves a spec reference to its file. ref is a name
// relative to the specs directory ("auth", "billing/auth.md"), an existing
// path relative to the project root ("specs/auth.md") or an absolute
// path. The file must lie inside the specs directory; references outside
// it return an error wrapping ErrOutsideSpecsDir.
func (c *Config) ResolveSpec(projectRoot, ref string) (string, error) {
	path := c.SpecPath(projectRoot, ref)
	switch {
	case filepath.IsAbs(ref):
		path = filepath.Clean(ref)
	case strings.ContainsAny(ref, `/\`):
		if info, err := os.Stat(filepath.Join(projectRoot, ref)); err == nil && !info.IsDir() {
			path = filepath.Join(projectRoot, ref)
		}
	}
	if !c.InSpecsDir(projectRoot, path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideSpecsDir, path)
	}
	return path, nil
}

// InSpecsDir reports whether path lies below the specs directory.
func (c *Config) InSpecsDir(projectRoot, path string) bool {
	rel, err := filepath.Rel(c.SpecsPath(projectRoot), path)
	return err == nil && rel != "." && filepath.IsLocal(rel)
}

// SpecName identifies a spec by its path relative to specsDir,
// slash-separated and without the .md extension, so specs/billing/auth.md
// and specs/users/auth.md stay distinct. Paths outside specsDir fall back
// to the base name.
func SpecName(specsDir, path string) string {
	rel, err := filepath.Rel(specsDir, path)
	if err != nil || !filepath.IsLocal(rel) {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), SpecExt)
}

// --- Loading ---

// Load reads config.yaml (if present), loads .env, and applies
// environment overrides. A missing config file is not an error.
func Load(projectRoot string) (*Config, error) {
	return LoadFile(projectRoot, ConfigPath(projectRoot))
}

// LoadFile is Load with an explicit settings file path.
func LoadFile(projectRoot, path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as config.yaml, creating .specsync/.
func Save(projectRoot string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(StatePath(projectRoot), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return os.WriteFile(ConfigPath(projectRoot), data, 0o644)
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.AutoFix.MaxAttempts < 0 {
		return fmt.Errorf("autofix.max_attempts must be >= 0, got %d", c.AutoFix.MaxAttempts)
	}
	switch c.Extraction.Strategy {
	case StrategyStatic, StrategySummarize:
	default:
		return fmt.Errorf("invalid extraction.strategy %q: must be one of: static, summarize", c.Extraction.Strategy)
	}
	for _, b := range c.Matching.Bridges {
		if strings.TrimSpace(b.Subject) == "" || len(b.Terms) == 0 {
			return fmt.Errorf("matching bridge needs a subject and at least one term")
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SPECSYNC_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SPECSYNC_MAX_ATTEMPTS: %w", err)
		}
		c.AutoFix.MaxAttempts = n
	}
	if v := os.Getenv("SPECSYNC_MODEL"); v != "" {
		c.Summarizer.Model = v
	}
	if v := os.Getenv("SPECSYNC_STRATEGY"); v != "" {
		c.Extraction.Strategy = Strategy(v)
	}
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			c.Summarizer.APIKey = v
			break
		}
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.SpecsDir == "" {
		c.SpecsDir = DefaultSpecsDir
	}
	if c.Extraction.Strategy == "" {
		c.Extraction.Strategy = StrategyStatic
	}
	if c.AutoFix.MaxAttempts == 0 {
		c.AutoFix.MaxAttempts = DefaultMaxAttempts
	}
	if c.Extraction.MaxFiles <= 0 {
		c.Extraction.MaxFiles = DefaultMaxFiles
	}
	if c.Summarizer.Model == "" {
		c.Summarizer.Model = DefaultModel
	}
}

// FindProjectRoot walks up from start looking for a .specsync/ state
// directory or a specs/ directory. If neither is found, start is returned
// so commands still work from a fresh checkout.
func FindProjectRoot(start string) (string, error) {
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		start = wd
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}

	current := abs
	for {
		for _, marker := range []string{StateDir, DefaultSpecsDir} {
			if info, err := os.Stat(filepath.Join(current, marker)); err == nil && info.IsDir() {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		current = parent
	}
}
