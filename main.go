package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"playground-mockserver/internal/api"
	"playground-mockserver/internal/config"
	"playground-mockserver/internal/logger"
	"playground-mockserver/internal/metrics"
	"playground-mockserver/internal/openapi"
	"playground-mockserver/internal/service"
	"playground-mockserver/internal/store"
)

var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		port   int
		dbPath string
		seed   string
		debug  bool
	)

	cmd := &cobra.Command{
		Use:          "playground-server",
		Short:        "Serve fake REST resources from a JSON file",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load configuration
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("openapi") {
				cfg.OpenAPISeed = seed
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "server port (env PORT)")
	cmd.Flags().StringVar(&dbPath, "db", "db.json", "JSON data file (env DB_PATH)")
	cmd.Flags().StringVar(&seed, "openapi", "", "OpenAPI document whose paths become resources (env OPENAPI_SEED)")
	cmd.Flags().BoolVar(&debug, "debug", false, "verbose logging (env DEBUG)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	// Initialize logger
	logger := logger.New(cfg.Debug)

	st := store.New(cfg.DBPath, logger)
	pg := service.NewPlayground(st, logger)

	if err := seedResources(ctx, cfg.OpenAPISeed, pg, logger); err != nil {
		return err
	}

	server := api.NewServer(cfg, pg, metrics.NewRecorder(), logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info(fmt.Sprintf("Playground mock server running at http://localhost:%d", cfg.Port), "DB_PATH: "+st.Path())
	logger.Info("Mock API: /mock/<resource>", "Server initialization")

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error(err.Error(), "Server failed to start")
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(err.Error(), "Graceful shutdown failed")
		return err
	}
	return <-errCh
}

// seedResources creates an empty resource for every path in the OpenAPI
// document at path. An empty path is a no-op.
func seedResources(ctx context.Context, path string, pg *service.Playground, logger *logger.Logger) error {
	if path == "" {
		return nil
	}
	names, err := openapi.LoadResourceNames(ctx, path)
	if err != nil {
		return err
	}
	added, err := pg.EnsureResources(names)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		logger.Info("Seeded resources: "+strings.Join(added, ", "), "OpenAPI "+path)
	}
	return nil
}
