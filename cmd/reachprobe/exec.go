package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazz-dev/reachprobe/internal/config"
	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/profile"
	"github.com/hazz-dev/reachprobe/internal/storage"
)

type execOptions struct {
	reporter string
	color    bool
}

// runExec runs the profile once, renders the report to out and records it
// when storage is configured. It returns an error when any example failed.
func runExec(ctx context.Context, out, errOut io.Writer, cfg *config.Config, opts execOptions, deps profile.Deps, logger *slog.Logger) error {
	reporter, err := control.NewReporter(opts.reporter, opts.color)
	if err != nil {
		return err
	}

	// Keep machine-readable stdout clean.
	if deps.Notices == nil {
		deps.Notices = out
		if opts.reporter == "json" {
			deps.Notices = errOut
		}
	}
	deps.Logger = logger

	controls, err := profile.Controls(cfg, deps)
	if err != nil {
		return fmt.Errorf("building profile: %w", err)
	}

	report := control.NewRunner(logger).Run(ctx, controls...)
	if err := reporter.Write(out, report); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if cfg.Storage.Path != "" {
		db, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		if err := db.InsertReport(ctx, report); err != nil {
			return fmt.Errorf("storing report: %w", err)
		}
	}

	if err := report.Err(); err != nil {
		return fmt.Errorf("%d of %d checks failed: %w", report.Failed(), len(report.Results), err)
	}
	return nil
}
