package summarize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/specsync/internal/bullets"
	"github.com/HendryAvila/specsync/internal/config"
)

var _ bullets.Summarizer = (*Gemini)(nil)

func TestNewGemini_RequiresAPIKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.SummarizerConfig{Model: "m"}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestSummarize(t *testing.T) {
	var gotModel, gotPrompt string
	g := newGemini("gemini-test", func(_ context.Context, model, prompt string) (string, error) {
		gotModel, gotPrompt = model, prompt
		return "- validate user credentials\n", nil
	}, nil)

	out, err := g.Summarize(context.Background(), "PROMPT")
	require.NoError(t, err)
	assert.Equal(t, "- validate user credentials\n", out)
	assert.Equal(t, "gemini-test", gotModel)
	assert.Equal(t, "PROMPT", gotPrompt)
	assert.Equal(t, "gemini-test", g.Model())
}

func TestSummarize_Errors(t *testing.T) {
	boom := errors.New("quota")
	g := newGemini("m", func(context.Context, string, string) (string, error) { return "", boom }, nil)
	_, err := g.Summarize(context.Background(), "p")
	assert.ErrorIs(t, err, boom)

	empty := newGemini("m", func(context.Context, string, string) (string, error) { return "  \n", nil }, nil)
	_, err = empty.Summarize(context.Background(), "p")
	assert.ErrorContains(t, err, "empty response")
}
