package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"finpocket/internal/app"
	"finpocket/internal/cli"
	"finpocket/internal/log"
	"finpocket/internal/terminal"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Records go to stderr so they never interleave with the prompt.
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	ledger, err := cli.BuildLedger(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", log.FieldError, err.Error(), log.FieldBackend, cfg.LedgerBackend)
		os.Exit(1)
	}

	opts := []app.Option{app.WithLogger(logger)}
	if publisher := cli.BuildPublisher(ctx, cfg, logger); publisher != nil {
		defer publisher.Close()
		opts = append(opts, app.WithPublisher(publisher))
	}

	// A read blocked on stdin cannot be interrupted, so a signal ends the
	// process directly once the terminal state is restored.
	finished := make(chan struct{})
	go exitOnSignal(ctx, finished, logger)

	ui := terminal.New(app.New(ledger, opts...), os.Stdin, os.Stdout,
		terminal.WithLogger(logger),
		terminal.WithPasswordReader(terminal.StdinPassword(os.Stdout)))
	err = ui.Run(ctx)
	close(finished)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Terminal session ended with error", log.FieldError, err.Error())
		os.Exit(1)
	}
}

func exitOnSignal(ctx context.Context, finished <-chan struct{}, logger *log.Logger) {
	fd := int(os.Stdin.Fd())
	state, stateErr := term.GetState(fd)
	select {
	case <-finished:
	case <-ctx.Done():
		if stateErr == nil {
			_ = term.Restore(fd, state)
		}
		fmt.Fprintln(os.Stdout)
		logger.Info("Interrupted", log.FieldOperation, log.OpShutdown)
		os.Exit(130)
	}
}
