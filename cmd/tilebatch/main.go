package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/francegen/tilebatch/internal/config"
	"github.com/francegen/tilebatch/internal/geometry"
	"github.com/francegen/tilebatch/internal/model"
	"github.com/francegen/tilebatch/internal/process"
)

// Exit codes. A processor failure exits with the processor's own code.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitInterrupted  = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "run":
		return runBatch(cmdArgs, stdout, stderr)
	case "status":
		return runStatus(cmdArgs, stdout, stderr)
	case "verify":
		return runVerify(cmdArgs, stdout, stderr)
	case "coverage":
		return runCoverage(cmdArgs, stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stderr)
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage(stderr)
		return ExitInvalidArgs
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: tilebatch <command> [options]

Commands:
  run       Download every macro-tile of the region and run the processor on each
  status    Show which macro-tiles are complete and how many tiles are on disk
  verify    Check downloaded tiles are readable GeoTIFFs of the expected size
  coverage  Render a PNG map of downloaded and completed tiles

For interactive mode, use: tilebatch-tui

Run 'tilebatch <command> -h' for command-specific help.`)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(stderr, "\nInterrupted, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// usageError reports bad command-line input.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		exitErr  *process.ExitError
		valErr   *config.ValidationError
		usageErr *usageError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.As(err, &valErr), errors.As(err, &usageErr),
		errors.Is(err, geometry.ErrNegativeRadius), errors.Is(err, model.ErrInvalidRegion):
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
