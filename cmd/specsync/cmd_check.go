package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/specsync/internal/autofix"
	"github.com/HendryAvila/specsync/internal/logging"
	"github.com/HendryAvila/specsync/internal/reconcile"
	"github.com/HendryAvila/specsync/internal/report"
	"github.com/HendryAvila/specsync/internal/snapshot"
)

var (
	checkStrict   bool
	checkYes      bool
	checkNoAppend bool
	checkForce    bool

	fixMaxAttempts int
)

var checkCmd = &cobra.Command{
	Use:   "check <spec>",
	Short: "Reconcile one spec with its implementation",
	Long: `Reconcile one spec with its implementation and record one fix attempt when
it fails. Bullets found only in code are offered for appending to the spec;
--yes appends them all, --no-append only reports them.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var fixCmd = &cobra.Command{
	Use:   "fix <spec>",
	Short: "Run the check → fix loop with the configured fix command",
	Long: `Run the check → fix loop: after each failing check the autofix.command from
the settings file is executed with the spec path and the referenced files as
arguments, until the spec passes or the attempt budget is spent.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	for _, c := range []*cobra.Command{checkCmd, fixCmd} {
		c.Flags().BoolVar(&checkStrict, "strict", false, "Refuse to run when specs changed since the last snapshot")
		c.Flags().BoolVar(&checkForce, "force", false, "Bypass the summary cache")
	}
	checkCmd.Flags().BoolVarP(&checkYes, "yes", "y", false, "Append every undocumented bullet without asking")
	checkCmd.Flags().BoolVar(&checkNoAppend, "no-append", false, "Never modify the item list")
	fixCmd.Flags().IntVar(&fixMaxAttempts, "max-attempts", 0, "Override autofix.max_attempts")
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts := reconcile.Options{
		Strict: checkStrict,
		Append: reconcile.AppendInteractive,
		Force:  checkForce,
	}
	switch {
	case checkNoAppend:
		opts.Append = reconcile.AppendNone
	case checkYes:
		opts.Append = reconcile.AppendBatch
	default:
		opts.Prompter = newLinePrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
	}
	return reconcileSpec(cmd, args[0], opts, false)
}

func runFix(cmd *cobra.Command, args []string) error {
	opts := reconcile.Options{
		Strict: checkStrict,
		Append: reconcile.AppendBatch,
		Force:  checkForce,
	}
	return reconcileSpec(cmd, args[0], opts, true)
}

func reconcileSpec(cmd *cobra.Command, name string, opts reconcile.Options, withFixer bool) error {
	root, cfg, err := loadProject()
	if err != nil {
		return err
	}
	if cfg.Integrity.Strict {
		opts.Strict = true
	}
	if withFixer && fixMaxAttempts > 0 {
		cfg.AutoFix.MaxAttempts = fixMaxAttempts
	}

	deps, cleanup := buildDeps(cmd.Context(), root, cfg)
	defer cleanup()
	r := reconcile.New(root, cfg, deps)

	var fixer autofix.Fixer
	if withFixer {
		fixer = autofix.NewCommandFixer(cfg.AutoFix.Command, root, logging.OrNop(logger))
		if fixer == nil {
			return fmt.Errorf("fix needs autofix.command in the settings file")
		}
	}

	rep, err := r.Run(cmd.Context(), name, opts, fixer)
	if errors.Is(err, snapshot.ErrTampered) {
		if rep != nil && rep.Integrity != nil {
			report.New(cmd.OutOrStdout()).Integrity(rep.Integrity)
		}
		return err
	}
	if err != nil {
		return err
	}

	if jsonOut {
		if err := report.JSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	} else {
		report.New(cmd.OutOrStdout()).Report(rep)
	}
	return exitWith(rep.ExitCode())
}
