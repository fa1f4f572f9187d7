package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/config"
	"github.com/marmos91/dittofm/pkg/fileserver"
	"github.com/marmos91/dittofm/pkg/server"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the file manager server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg)
		},
	}
}

// runServer wires the store, metrics and adapters from cfg and serves until
// ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config) error {
	fmt.Println("DittoFM - HTTP file manager")
	logger.Info("Log level: %s, format: %s", cfg.Logging.Level, cfg.Logging.Format)
	metricsResult := config.InitializeMetrics(cfg)

	st, err := config.CreateStore(ctx, &cfg.Store, metricsResult.StoreMetrics)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Store close error: %v", err)
		}
	}()
	logger.Info("Store initialized: %s", cfg.Store.Type)

	resolver, err := fileserver.NewResolver(cfg.Server.BaseDir, cfg.Server.ContentRoot, cfg.Server.PublicRoot)
	if err != nil {
		return fmt.Errorf("invalid server layout: %w", err)
	}
	logger.Info("Serving %s (content root %q, public root %q)",
		resolver.BaseDir(), resolver.ContentRoot(), resolver.PublicRoot())
	if err := fileserver.EnsureRoots(ctx, st, resolver); err != nil {
		return err
	}

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	srv := server.New(st)
	srv.SetStopTimeout(cfg.Server.ShutdownTimeout)

	adapters, err := config.CreateAdapters(cfg, metricsResult.HTTPMetrics)
	if err != nil {
		return err
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return fmt.Errorf("failed to add %s adapter: %w", a.Protocol(), err)
		}
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	err = srv.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Server stopped gracefully")
		return nil
	}
	return err
}
