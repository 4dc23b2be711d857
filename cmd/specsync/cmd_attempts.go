package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts",
	Short: "Inspect or reset fix attempt counters",
}

var attemptsShowCmd = &cobra.Command{
	Use:   "show [spec]",
	Short: "Show the attempt counter of one spec, or of every spec",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAttemptsShow,
}

var attemptsResetCmd = &cobra.Command{
	Use:   "reset <spec>",
	Short: "Reset a spec's attempt counter after manual review",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttemptsReset,
}

func init() {
	attemptsCmd.AddCommand(attemptsShowCmd)
	attemptsCmd.AddCommand(attemptsResetCmd)
}

func attemptsStore(root string) *autofix.FileStateStore {
	return autofix.NewFileStateStore(filepath.Join(config.StatePath(root), config.AttemptsDir))
}

// specName resolves a spec reference to its counter name.
func specName(root string, cfg *config.Config, guard *snapshot.Guard, ref string) (string, error) {
	path, err := cfg.ResolveSpec(root, ref)
	if err != nil {
		return "", err
	}
	return guard.Name(path), nil
}

func budget(cfg *config.Config) int {
	if cfg.AutoFix.MaxAttempts > 0 {
		return cfg.AutoFix.MaxAttempts
	}
	return config.DefaultMaxAttempts
}

func runAttemptsShow(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	store := attemptsStore(root)
	guard := snapshot.NewProjectGuard(root, cfg, logger)

	var names []string
	if len(args) == 1 {
		name, err := specName(root, cfg, guard, args[0])
		if err != nil {
			return err
		}
		names = []string{name}
	} else {
		files, err := guard.SpecFiles()
		if err != nil {
			return err
		}
		for _, f := range files {
			names = append(names, guard.Name(f))
		}
	}

	states := make([]autofix.AttemptState, 0, len(names))
	for _, n := range names {
		st, err := store.Load(n)
		if err != nil {
			return err
		}
		states = append(states, st)
	}
	if jsonOut {
		return report.JSON(cmd.OutOrStdout(), states)
	}
	p := report.New(cmd.OutOrStdout())
	for _, st := range states {
		p.Attempts(st, budget(cfg))
	}
	return nil
}

func runAttemptsReset(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	name, err := specName(root, cfg, snapshot.NewProjectGuard(root, cfg, logger), args[0])
	if err != nil {
		return err
	}
	if err := attemptsStore(root).Reset(name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: attempt counter reset (0/%d)\n", name, budget(cfg))
	return nil
}
