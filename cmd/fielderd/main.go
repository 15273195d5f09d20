package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/ClickHouse/clickhouse-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fielder/api"
	"fielder/config"
	"fielder/relay"
	"fielder/service"
	"fielder/store/postgres"
)

var (
	// Global flags
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fielderd",
	Short: "fielderd - custom attribute service for project trackers",
	Long: `fielderd manages per-project custom attributes and their values for
epics, user stories, tasks and issues. Attributes live in PostgreSQL;
every mutation is recorded as a change event and relayed in batches to
an analytics sink.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		zapCfg := zap.NewProductionConfig()
		lvl, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("bad log level %q: %w", cfg.Logging.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(lvl)

		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the change-event relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		sugar := logger.Sugar()

		st, err := postgres.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		defer st.DB().Close()

		var outbox service.Outbox
		var rel *relay.Relay
		if cfg.Analytics.Enabled {
			sink, err := sql.Open("clickhouse", cfg.Analytics.DSN)
			if err != nil {
				return fmt.Errorf("opening analytics sink: %w", err)
			}
			defer sink.Close()

			rel = relay.NewRelay(sink, relay.Config{
				Logger:        sugar,
				SendInterval:  cfg.Outbox.SendInterval.Std(),
				SendLimit:     cfg.Outbox.SendLimit,
				FileWorkspace: cfg.Outbox.Workspace,
			})
			rel.Run()
			outbox = rel
		} else {
			sugar.Infow("analytics sink disabled, change events are not recorded")
		}

		svc := service.New(st, outbox, sugar)
		srv := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: api.NewServer(svc, sugar).Router(),
		}

		errCh := make(chan error, 1)
		go func() {
			sugar.Infow("listening", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			sugar.Infow("shutting down", "signal", sig.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			sugar.Warnw("http shutdown", "error", err)
		}
		if rel != nil {
			// Publish everything still queued before exiting.
			rel.Stop(true)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		st, err := postgres.Open(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("opening postgres: %w", err)
		}
		defer st.DB().Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		logger.Sugar().Infow("schema up to date")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
