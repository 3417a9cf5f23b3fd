package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/reachprobe/internal/alert"
	"github.com/hazz-dev/reachprobe/internal/config"
	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/dashboard"
	"github.com/hazz-dev/reachprobe/internal/logging"
	"github.com/hazz-dev/reachprobe/internal/metrics"
	"github.com/hazz-dev/reachprobe/internal/profile"
	"github.com/hazz-dev/reachprobe/internal/scheduler"
	"github.com/hazz-dev/reachprobe/internal/server"
	"github.com/hazz-dev/reachprobe/internal/storage"
	"github.com/hazz-dev/reachprobe/internal/version"
)

// defaultDBPath is used by serve and status when storage.path is unset.
const defaultDBPath = "reachprobe.db"

var (
	cfgFile string
	inputs  []string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reachprobe",
		Short:        "Infrastructure reachability compliance checks",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().StringArrayVar(&inputs, "input", nil, "attribute override as key=value (repeatable)")

	root.AddCommand(versionCmd())
	root.AddCommand(execCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(statusCmd())

	return root
}

// loadConfig reads --config, tolerating a missing default file, and applies --input.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyInputs(inputs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func storagePath(cfg *config.Config) string {
	if cfg.Storage.Path == "" {
		return defaultDBPath
	}
	return cfg.Storage.Path
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reachprobe %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func execCmd() *cobra.Command {
	var opts execOptions
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Run the profile once and report the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			return runExec(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, opts, profile.Deps{}, logger)
		},
	}
	cmd.Flags().StringVar(&opts.reporter, "reporter", "cli", "report format: cli or json")
	cmd.Flags().BoolVar(&opts.color, "color", false, "colorize cli output")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the profile on a schedule and serve results over HTTP",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 1. Load config
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("config loaded", "attributes", cfg.AttributeNames())

	// 2. Open SQLite
	db, err := storage.Open(storagePath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// 3. Build the profile with metrics attached
	rec := metrics.New()
	controls, err := profile.Controls(cfg, profile.Deps{
		Notices:  cmd.ErrOrStderr(),
		Recorder: rec,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("building profile: %w", err)
	}

	// 4. Build scheduler and alerter (if configured)
	sched := scheduler.New(controls, control.NewRunner(logger), db, cfg.Schedule.Interval.Duration, logger)
	sched.SetOnReport(rec.ObserveReport)
	var alerter *alert.Alerter
	if cfg.Alerts.Webhook.URL != "" {
		alerter = alert.New(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Cooldown.Duration, logger)
		sched.SetOnResult(alerter.Notify)
	}

	// 5. Build API server and dashboard
	apiServer := server.New(db, controls, logger)
	apiServer.MountMetrics(rec.Handler())
	apiServer.Router().Handle("/*", dashboard.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Signal context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 7. Start scheduler
	sched.Start(ctx)
	logger.Info("scheduler started", "controls", len(controls), "interval", cfg.Schedule.Interval.Duration)

	// 8. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 9. Wait for signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		sched.Wait()
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 10. Graceful shutdown
	sched.Wait()
	if alerter != nil {
		alerter.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest result of each control from the database",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := storage.Open(storagePath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return executeStatus(cmd, db)
}
