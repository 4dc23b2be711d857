package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
	"github.com/HendryAvila/specsync/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-verify spec integrity whenever a spec file changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before re-verifying")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	log := logging.OrNop(logger)
	guard := snapshot.NewProjectGuard(root, cfg, log)

	// Establish the baseline before listening.
	res, err := guard.Verify(cmd.Context())
	if err != nil {
		return err
	}
	p := report.New(cmd.OutOrStdout())
	p.Integrity(res)

	w, err := watch.NewProject(root, cfg, guard, func(res *snapshot.Result, err error) {
		if err != nil {
			log.Error("verification failed", zap.Error(err))
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] ", time.Now().Format("15:04:05"))
		p.Integrity(res)
	}, watch.Options{Debounce: watchDebounce, Logger: log})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", cfg.SpecsPath(root))
	return w.Run(cmd.Context())
}
