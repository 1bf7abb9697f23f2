package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/telephasma/telephasma/internal/config"
	"github.com/telephasma/telephasma/internal/database"
	"github.com/telephasma/telephasma/internal/log"
	"github.com/telephasma/telephasma/internal/platform/memory"
	"github.com/telephasma/telephasma/internal/server"
	"github.com/telephasma/telephasma/internal/session"
)

// shutdownGrace is how long in-flight requests get to finish on shutdown.
const shutdownGrace = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and scan server",
		Long: `Serve starts the Telephasma HTTP API.

The API covers platform login, dialog and member listings, common-group
lookups, and live scans over WebSocket. Scan runs are recorded in a local
SQLite database and can be rendered as Markdown reports.

Examples:
  # Serve against a fixture graph (development)
  telephasma serve --fixture testdata/graph.yml

  # Custom listen address and config file
  telephasma serve --fixture graph.yml --addr 127.0.0.1:9000 -c myconfig.yml

Configuration file (.telephasma) example:
  api_id: 12345
  api_hash: "0123456789abcdef"
  phone: "+15550100"
  delay_ms: 1500
  allowed_origins:
    - "http://localhost:5173"`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("addr", "a", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().StringP("fixture", "f", "", "Back the platform client with a YAML fixture")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .telephasma in current or home directory)")
	cmd.Flags().IntP("depth", "d", config.DefaultDepth, "Default scan recursion depth")
	cmd.Flags().Duration("delay", config.DefaultDelay, "Default pause between user probes")
	cmd.Flags().String("db-dir", "", "Directory for the scan history database")
	cmd.Flags().String("session-dir", "", "Directory for the session store")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// The live platform driver plugs in here; until one is configured,
	// a fixture backs the client.
	if cfg.FixturePath == "" {
		return errors.New("no platform driver configured: use --fixture")
	}
	client, err := memory.Load(cfg.FixturePath)
	if err != nil {
		return fmt.Errorf("failed to load fixture: %w", err)
	}

	store, err := session.Open(cfg.SessionDir, cfg.APIHash)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open scan database: %w", err)
	}
	defer db.Close()

	srv := server.New(cfg, client,
		server.WithSessionStore(store),
		server.WithScanDB(db),
		server.WithLogger(logger),
	)

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", "addr", cfg.Addr, "fixture", cfg.FixturePath)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", "active_runs", srv.StopAll())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildServeConfig assembles the config from defaults, the config file,
// and flags. Flags win over the file; the file wins over defaults.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, _ := cmd.Flags().GetString("config")
	if found := config.FindConfigFile(configPath); found != "" {
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		cfg.Apply(cf)
		cfg.ConfigFilePath = found
	} else if configPath != "" {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	if cmd.Flags().Changed("addr") {
		cfg.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("depth") {
		cfg.Depth, _ = cmd.Flags().GetInt("depth")
	}
	if cmd.Flags().Changed("delay") {
		cfg.Delay, _ = cmd.Flags().GetDuration("delay")
	}
	if v, _ := cmd.Flags().GetString("fixture"); v != "" {
		cfg.FixturePath = v
	}
	if v, _ := cmd.Flags().GetString("db-dir"); v != "" {
		cfg.DBDir = v
	}
	if v, _ := cmd.Flags().GetString("session-dir"); v != "" {
		cfg.SessionDir = v
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}
