package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/cache"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/summarize"
)

// buildDeps opens the summary cache and the summarizer. Both are
// optional: failures are logged and the engine runs on static rules.
// The returned cleanup is always non-nil.
func buildDeps(ctx context.Context, root string, cfg *config.Config) (reconcile.Deps, func()) {
	log := logging.OrNop(logger)
	deps := reconcile.Deps{Logger: log}
	cleanup := func() {}

	g, err := summarize.NewGemini(ctx, cfg.Summarizer, log)
	switch {
	case errors.Is(err, summarize.ErrNoAPIKey):
		log.Debug("summarizer disabled, no API key")
		return deps, cleanup
	case err != nil:
		log.Warn("summarizer disabled", zap.Error(err))
		return deps, cleanup
	}
	deps.Summarizer = g

	c, err := cache.Open(config.CachePath(root), g.Model())
	if err != nil {
		log.Warn("summary cache disabled", zap.Error(err))
		return deps, cleanup
	}
	deps.Cache = c
	cleanup = func() {
		if err := c.Close(); err != nil {
			log.Warn("closing summary cache", zap.Error(err))
		}
	}
	return deps, cleanup
}
