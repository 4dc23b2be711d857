// Command specsync reconciles Markdown specs with the code that
// implements them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/config"
	"github.com/HendryAvila/specsync/internal/logging"
	sserver "github.com/HendryAvila/specsync/internal/server"
)

var (
	// Global flags
	rootDir    string
	configPath string
	verbose    bool
	jsonOut    bool

	logger *zap.Logger
)

// exitError carries a process exit code without an error message of its
// own; the command already printed its result.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// exitWith returns nil for code 0.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

var rootCmd = &cobra.Command{
	Use:   "specsync",
	Short: "Keep Markdown specs and their implementation in agreement",
	Long: `specsync reconciles a spec's "## Checks" items with bullets derived from the
code the spec references. It marks items ✓/✗, appends behaviour found only in
code, guards specs against unreviewed edits and bounds automated fix loops.

Exit codes: 0 PASS, 1 FAIL or error, 2 EXHAUSTED.`,
	Version:       sserver.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root (default: nearest directory with .specsync/ or specs/)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default: <root>/.specsync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as JSON")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(attemptsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadProject resolves the project root and its configuration.
func loadProject() (string, *config.Config, error) {
	root, err := config.FindProjectRoot(rootDir)
	if err != nil {
		return "", nil, err
	}
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(root, configPath)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return "", nil, fmt.Errorf("loading config: %w", err)
	}
	logging.OrNop(logger).Debug("project loaded", zap.String("root", root), zap.String("specs_dir", cfg.SpecsDir))
	return root, cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	var ee *exitError
	switch {
	case errors.As(err, &ee):
		os.Exit(ee.code)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
