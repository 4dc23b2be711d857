package bullets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
	"go.uber.org/zap"
)

// Cache stores summarizer output keyed by the exact prompt content, so
// any change to the source text misses the cache.
type Cache interface {
	Lookup(content string) ([]string, bool, error)
	Store(content string, bullets []string) error
}

// SourceFile is one implementation file handed to extraction.
type SourceFile struct {
	Path    string
	Content string
}

// SummarySource tags bullets produced by the summarizer.
const SummarySource = "summary"

// ExtractorConfig wires an Extractor. Summarizer and Cache are optional.
type ExtractorConfig struct {
	Rules      []Rule
	Strategy   config.Strategy
	Summarizer Summarizer
	Cache      Cache
	Logger     *zap.Logger
}

// Extractor produces implementation bullets from source files.
type Extractor struct {
	rules      []Rule
	strategy   config.Strategy
	summarizer Summarizer
	cache      Cache
	logger     *zap.Logger
}

// NewExtractor creates an Extractor. Nil rules select DefaultRules.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = config.StrategyStatic
	}
	return &Extractor{
		rules:      rules,
		strategy:   strategy,
		summarizer: cfg.Summarizer,
		cache:      cfg.Cache,
		logger:     logging.OrNop(cfg.Logger),
	}
}

// Extraction is the outcome of one implementation-side pass.
type Extraction struct {
	Bullets    []Bullet `json:"bullets"`
	Files      []string `json:"files"`
	Skipped    []string `json:"skipped,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Summarized bool     `json:"summarized"`
	CacheHit   bool     `json:"cache_hit"`
}

func (x *Extraction) warn(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.Warn(msg, fields...)
	x.Warnings = append(x.Warnings, msg)
}

// Extract reads files (relative to projectRoot unless absolute) and
// derives bullets. Unreadable files are skipped with a warning; a failed
// summarizer call is a warning and its bullets are omitted. force skips
// the cache lookup. The only error returned is context cancellation.
func (e *Extractor) Extract(ctx context.Context, projectRoot string, files []string, force bool) (*Extraction, error) {
	x := &Extraction{}

	var sources []SourceFile
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, f)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			x.Skipped = append(x.Skipped, f)
			x.warn(e.logger, fmt.Sprintf("skipping unreadable file %s: %v", f, err), zap.String("file", f))
			continue
		}
		x.Files = append(x.Files, f)
		sources = append(sources, SourceFile{Path: f, Content: string(data)})
	}

	var static []Bullet
	for _, s := range sources {
		static = append(static, ApplyRules(e.rules, s.Path, s.Content)...)
	}
	static = dedupe(static)

	useSummarizer := e.summarizer != nil && len(sources) > 0 &&
		(e.strategy == config.StrategySummarize || len(static) == 0)
	if !useSummarizer {
		x.Bullets = static
		return x, nil
	}

	texts, hit, err := e.summarize(ctx, sources, force)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		x.warn(e.logger, fmt.Sprintf("summarizer failed, summarized bullets omitted: %v", err), zap.Error(err))
		x.Bullets = static
		return x, nil
	}
	x.CacheHit = hit

	if len(texts) == 0 {
		x.Bullets = static
		return x, nil
	}
	summarized := make([]Bullet, 0, len(texts))
	for _, t := range texts {
		summarized = append(summarized, Bullet{Text: t, Origin: OriginImpl, Source: SummarySource})
	}
	x.Summarized = true
	x.Bullets = dedupe(summarized)
	return x, nil
}

func (e *Extractor) summarize(ctx context.Context, sources []SourceFile, force bool) ([]string, bool, error) {
	prompt := BuildPrompt(sources)

	if e.cache != nil && !force {
		cached, ok, err := e.cache.Lookup(prompt)
		if err != nil {
			e.logger.Warn("summary cache lookup failed", zap.Error(err))
		} else if ok {
			e.logger.Debug("summary cache hit", zap.Int("bullets", len(cached)))
			return cached, true, nil
		}
	}

	e.logger.Debug("calling summarizer", zap.Int("files", len(sources)), zap.Int("prompt_bytes", len(prompt)))
	raw, err := e.summarizer.Summarize(ctx, prompt)
	if err != nil {
		return nil, false, err
	}
	texts := ParseSummary(raw)

	if e.cache != nil {
		if err := e.cache.Store(prompt, texts); err != nil {
			e.logger.Warn("summary cache store failed", zap.Error(err))
		}
	}
	return texts, false, nil
}
