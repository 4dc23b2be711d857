package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sserver "github.com/HendryAvila/specsync/internal/server"
	"github.com/HendryAvila/specsync/internal/updater"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version, optionally checking for a newer release",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Ask GitHub whether a newer release exists")
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "specsync %s\n", sserver.Version)
	if !versionCheck {
		return nil
	}

	res, err := updater.NewChecker(logger).Check(cmd.Context(), sserver.Version)
	if err != nil {
		return err
	}
	if res.UpdateAvailable {
		fmt.Fprintf(out, "specsync %s is available: %s\n", res.Latest, res.ReleaseURL)
	} else {
		fmt.Fprintln(out, "up to date")
	}
	return nil
}
