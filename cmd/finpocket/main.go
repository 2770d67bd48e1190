package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finpocket/internal/app"
	"finpocket/internal/cli"
	apphttp "finpocket/internal/http"
	"finpocket/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		bootstrap := cli.SetupLogger("info", os.Stdout)
		bootstrap.Error("Configuration invalid", log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	ledger, err := cli.BuildLedger(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", log.FieldError, err.Error(), log.FieldBackend, cfg.LedgerBackend)
		os.Exit(1)
	}

	opts := []app.Option{app.WithLogger(logger)}
	var ready func(context.Context) error
	if publisher := cli.BuildPublisher(ctx, cfg, logger); publisher != nil {
		defer publisher.Close()
		opts = append(opts, app.WithPublisher(publisher))
		ready = publisher.Ready
	}

	newApp := func() *app.App { return app.New(ledger, opts...) }
	srv, err := apphttp.NewServer(newApp, apphttp.Options{
		Addr:               cfg.Addr(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              ready,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err.Error())
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting finpocket server",
			log.FieldOperation, log.OpStartup,
			"addr", cfg.Addr(),
			log.FieldBackend, cfg.LedgerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "addr", cfg.Addr())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
