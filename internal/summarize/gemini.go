// Package summarize provides the Gemini-backed summarizer used when the
// static rule table finds no behaviour in a set of source files.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
)

// ErrNoAPIKey is returned when no Gemini API key is configured.
var ErrNoAPIKey = errors.New("no Gemini API key configured (set GEMINI_API_KEY or GOOGLE_API_KEY)")

// generateFunc is the single model call the summarizer makes.
type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Gemini summarizes source text with a Gemini model.
type Gemini struct {
	model    string
	generate generateFunc
	logger   *zap.Logger
}

// NewGemini creates a summarizer for cfg. The returned value satisfies
// bullets.Summarizer.
func NewGemini(ctx context.Context, cfg config.SummarizerConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}

	generate := func(ctx context.Context, model, prompt string) (string, error) {
		contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
		resp, err := client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
			Temperature: genai.Ptr[float32](0),
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGemini(model, generate, logger), nil
}

func newGemini(model string, generate generateFunc, logger *zap.Logger) *Gemini {
	return &Gemini{model: model, generate: generate, logger: logging.OrNop(logger)}
}

// Model returns the model name in use.
func (g *Gemini) Model() string { return g.model }

// Summarize sends prompt to the model and returns its raw text.
func (g *Gemini) Summarize(ctx context.Context, prompt string) (string, error) {
	g.logger.Debug("gemini request", zap.String("model", g.model), zap.Int("prompt_bytes", len(prompt)))
	text, err := g.generate(ctx, g.model, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini %s: empty response", g.model)
	}
	return text, nil
}
