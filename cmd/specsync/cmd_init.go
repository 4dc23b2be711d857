package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .specsync/config.yaml, the specs directory and a first snapshot",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		root = wd
	}

	out := cmd.OutOrStdout()
	cfgPath := config.ConfigPath(root)
	cfg := config.Default()
	switch _, err := os.Stat(cfgPath); {
	case err == nil:
		fmt.Fprintf(out, "%s already exists, keeping it\n", cfgPath)
		if cfg, err = config.Load(root); err != nil {
			return err
		}
	case errors.Is(err, os.ErrNotExist):
		if err := config.Save(root, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", cfgPath)
	default:
		return err
	}

	if err := os.MkdirAll(cfg.SpecsPath(root), 0o755); err != nil {
		return fmt.Errorf("creating specs directory: %w", err)
	}

	guard := snapshot.NewProjectGuard(root, cfg, logger)
	snap, err := guard.Create(cmd.Context())
	if err != nil {
		return err
	}
	report.New(out).Snapshot(snap, guard.SnapshotPath())
	return nil
}
