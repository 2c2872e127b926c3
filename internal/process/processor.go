// Package process runs the external terrain generator on a macro-tile.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/mattn/go-shellwords"
)

// Processor merges one directory of tiles into the shared world directory.
//
// Process blocks until the tool exits and returns the exact command vector
// it ran. Any non-nil error means the world directory may be inconsistent.
type Processor interface {
	Process(ctx context.Context, inputDir, worldDir string, extraArgs []string) ([]string, error)
}

// ExitError reports a processor that could not start or exited non-zero.
type ExitError struct {
	// Code is the process exit code, 128+signal when the processor was
	// killed by a signal, or 127 when the binary could not be started.
	Code    int
	Command []string
	Err     error

	// Signal names the signal that killed the processor, if any.
	Signal string
}

func (e *ExitError) Error() string {
	if e.Err != nil && e.Code == notStarted && e.Signal == "" {
		return fmt.Sprintf("processor %s could not start: %v", e.Command[0], e.Err)
	}
	if e.Signal != "" {
		return fmt.Sprintf("processor killed by signal %s (exit code %d)", e.Signal, e.Code)
	}
	return fmt.Sprintf("processor failed with exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

const notStarted = 127

// ExecProcessor runs a binary as:
//
//	<Bin> <extraArgs...> <inputDir> <worldDir>
type ExecProcessor struct {
	Bin string

	// Stdout and Stderr receive the tool's output. Nil means the
	// corresponding stream of this process.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecProcessor creates an ExecProcessor for bin.
func NewExecProcessor(bin string) *ExecProcessor {
	return &ExecProcessor{Bin: bin}
}

// BuildCommand returns the command vector for one invocation.
func BuildCommand(bin string, extraArgs []string, inputDir, worldDir string) []string {
	cmd := make([]string, 0, len(extraArgs)+3)
	cmd = append(cmd, bin)
	cmd = append(cmd, extraArgs...)
	return append(cmd, inputDir, worldDir)
}

// Command returns the command vector Process would run.
func (p *ExecProcessor) Command(inputDir, worldDir string, extraArgs []string) []string {
	return BuildCommand(p.Bin, extraArgs, inputDir, worldDir)
}

// Process runs the binary and waits for it. There is no timeout.
func (p *ExecProcessor) Process(ctx context.Context, inputDir, worldDir string, extraArgs []string) ([]string, error) {
	argv := p.Command(inputDir, worldDir, extraArgs)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = p.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = p.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return argv, nil
	}
	if ctx.Err() != nil {
		return argv, fmt.Errorf("processor cancelled: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return argv, exitError(exitErr, argv)
	}
	return argv, &ExitError{Code: notStarted, Command: argv, Err: err}
}

// exitError converts a finished process into an ExitError whose Code is
// always a valid exit status.
func exitError(exitErr *exec.ExitError, argv []string) *ExitError {
	e := &ExitError{Code: exitErr.ExitCode(), Command: argv, Err: exitErr}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		e.Code = 128 + int(ws.Signal())
		e.Signal = ws.Signal().String()
	}
	if e.Code < 0 || e.Code > 255 {
		e.Code = 1
	}
	return e
}

// SplitArgs splits a pass-through argument string with shell quoting rules,
// e.g. `--config "my cfg.json"` becomes ["--config", "my cfg.json"].
func SplitArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse processor args: %w", err)
	}
	return args, nil
}

// FormatCommand joins a command vector for display.
func FormatCommand(argv []string) string {
	return strings.Join(argv, " ")
}
