// Package process spawns the external tools driven by utrun and interprets
// their exit codes.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
)

// Command describes one subprocess invocation.
type Command struct {
	Name   string
	Args   []string
	Dir    string    // Working directory; empty means the current directory
	Stdout io.Writer // nil means discard
	Stderr io.Writer // nil means discard
}

// String returns the command line as echoed to the user.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands synchronously.
// Run returns the exit code of the process. A non-nil error means the
// process could not be started at all (missing executable, bad directory);
// the exit code is then -1.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// ExecRunner runs commands with os/exec in a fixed Environment.
type ExecRunner struct {
	env Environment
	log *zap.Logger
}

// NewExecRunner creates a runner that spawns every process with env.
func NewExecRunner(env Environment, log *zap.Logger) *ExecRunner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecRunner{env: env, log: log}
}

// Run executes cmd and waits for it. There is no timeout: a hung process
// blocks until ctx is cancelled.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (int, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = r.env.Environ()
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	r.log.Debug("spawning process", zap.String("command", cmd.String()), zap.String("dir", cmd.Dir))
	start := time.Now()
	err := c.Run()
	elapsed := time.Since(start)

	if err == nil {
		r.log.Info("process exited", zap.String("command", cmd.Name), zap.Int("exit_code", 0), zap.Duration("elapsed", elapsed))
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		r.log.Info("process exited",
			zap.String("command", cmd.Name),
			zap.Int("exit_code", code),
			zap.Stringer("outcome", Classify(code)),
			zap.Duration("elapsed", elapsed))
		return code, nil
	}

	r.log.Warn("process failed to start", zap.String("command", cmd.String()), zap.Error(err))
	return -1, err
}

// Check runs cmd and turns its exit code into an error for steps that must
// succeed (build, coverage capture). Success and ToolWarning are accepted;
// Failure becomes a subprocess error naming the full command line.
func Check(ctx context.Context, r Runner, cmd Command) (Outcome, error) {
	code, err := r.Run(ctx, cmd)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Failure, runerrors.Environmentf("%s not found in PATH", cmd.Name)
		}
		return Failure, &runerrors.RunError{
			Kind:    runerrors.KindEnvironment,
			Message: fmt.Sprintf("failed to start %q: %v", cmd.String(), err),
			Command: cmd.String(),
			Cause:   err,
		}
	}

	outcome := Classify(code)
	if !outcome.Acceptable() {
		return outcome, runerrors.Subprocess(cmd.String(), code)
	}
	return outcome, nil
}
