package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/specsync/internal/cache"
	"github.com/HendryAvila/specsync/internal/config"
)

var cachePruneAge time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the summary cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many summaries are cached",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached summaries older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

func init() {
	cachePruneCmd.Flags().DurationVar(&cachePruneAge, "older-than", 30*24*time.Hour, "Age of the entries to delete")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
}

func openCache() (*cache.Cache, error) {
	root, cfg, err := loadProject()
	if err != nil {
		return nil, err
	}
	return cache.Open(config.CachePath(root), cfg.Summarizer.Model)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	n, err := c.Len()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cached summaries\n", n)
	return nil
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	n, err := c.Prune(time.Now().Add(-cachePruneAge))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pruned %d cached summaries\n", n)
	return nil
}
