package main

import (
	"github.com/spf13/cobra"

	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the spec integrity snapshot",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Fingerprint every spec and store the snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotCreate,
}

var snapshotVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report specs changed, added or deleted since the snapshot",
	Long: `Report specs changed, added or deleted since the snapshot. Prints
SPEC_TAMPERED and exits 1 when anything differs. Without a snapshot one is
created and verification passes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error { return runSnapshotCompare(cmd, false) },
}

var snapshotDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Report only specs whose content changed since the snapshot",
	Args:  cobra.NoArgs,
	RunE:  func(cmd *cobra.Command, args []string) error { return runSnapshotCompare(cmd, true) },
}

func init() {
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotVerifyCmd)
	snapshotCmd.AddCommand(snapshotDiffCmd)
}

func projectGuard() (*snapshot.Guard, error) {
	root, cfg, err := loadProject()
	if err != nil {
		return nil, err
	}
	return snapshot.NewProjectGuard(root, cfg, logger), nil
}

func runSnapshotCreate(cmd *cobra.Command, args []string) error {
	guard, err := projectGuard()
	if err != nil {
		return err
	}
	snap, err := guard.Create(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		return report.JSON(cmd.OutOrStdout(), snap)
	}
	report.New(cmd.OutOrStdout()).Snapshot(snap, guard.SnapshotPath())
	return nil
}

func runSnapshotCompare(cmd *cobra.Command, diffOnly bool) error {
	guard, err := projectGuard()
	if err != nil {
		return err
	}
	compare := guard.Verify
	if diffOnly {
		compare = guard.Diff
	}
	res, err := compare(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOut {
		if err := report.JSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		report.New(cmd.OutOrStdout()).Integrity(res)
	}
	if !res.OK() {
		return exitWith(1)
	}
	return nil
}
