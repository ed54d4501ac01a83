package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/telekom/bulkmail/pkg/apperrors"
	bulkmailcmd "github.com/telekom/bulkmail/pkg/bulkmail/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := interruptContext(context.Background())
	defer stop()

	cfg := bulkmailcmd.DefaultConfig()
	cfg.Context = ctx
	root := bulkmailcmd.NewRootCommand(cfg)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCode(ctx, err)
	}
	return apperrors.ExitOK
}

type signalError struct {
	sig os.Signal
}

func (e *signalError) Error() string { return "received " + e.sig.String() }

// interruptContext cancels the returned context on SIGINT or SIGTERM. The
// signal becomes the context's cause. After the first signal the default
// handling is restored, so a second one kills the process.
func interruptContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			signal.Stop(sigs)
			cancel(&signalError{sig: sig})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigs)
		cancel(nil)
	}
}

// exitCode is apperrors.ExitCode, except that a run stopped by a signal
// exits with 128 + the signal number: 130 for SIGINT, 143 for SIGTERM.
func exitCode(ctx context.Context, err error) int {
	code := apperrors.ExitCode(err)
	if code != apperrors.ExitInterrupted {
		return code
	}
	var se *signalError
	if errors.As(context.Cause(ctx), &se) {
		if sig, ok := se.sig.(syscall.Signal); ok {
			return 128 + int(sig)
		}
	}
	return code
}
