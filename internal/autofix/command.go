package autofix

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/HendryAvila/specsync/internal/logging"
)

// CommandFixer runs an external command as the fix step. The spec path
// and the referenced files are appended to its arguments.
type CommandFixer struct {
	command []string
	dir     string
	logger  *zap.Logger
}

// NewCommandFixer returns a nil Fixer when command is empty, which
// makes the controller stop after recording one attempt.
func NewCommandFixer(command []string, dir string, logger *zap.Logger) Fixer {
	if len(command) == 0 {
		return nil
	}
	return &CommandFixer{command: command, dir: dir, logger: logging.OrNop(logger)}
}

// Fix runs the command. A non-zero exit is an unsuccessful fix, not an
// error; failing to start the command is an error.
func (f *CommandFixer) Fix(ctx context.Context, specPath string, files []string) (bool, error) {
	args := append(append([]string{}, f.command[1:]...), specPath)
	args = append(args, files...)

	cmd := exec.CommandContext(ctx, f.command[0], args...)
	cmd.Dir = f.dir
	output, err := cmd.CombinedOutput()
	f.logger.Debug("fix command finished",
		zap.Strings("command", cmd.Args),
		zap.ByteString("output", output))

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		return false, nil
	default:
		return false, fmt.Errorf("running fix command %q: %w", f.command[0], err)
	}
}
