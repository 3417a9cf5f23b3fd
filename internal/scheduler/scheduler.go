package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/storage"
)

// Store defines the storage operations required by the scheduler.
type Store interface {
	InsertReport(ctx context.Context, r *control.Report) error
	LatestResult(ctx context.Context, controlID string) (*storage.Result, error)
}

// Scheduler runs the profile's controls on a fixed interval in one goroutine.
// Runs never overlap: a run longer than the interval delays the next one.
type Scheduler struct {
	controls []*control.Control
	runner   *control.Runner
	store    Store
	interval time.Duration
	onResult func(control.Result, *control.Status)
	onReport func(*control.Report)
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(controls []*control.Control, runner *control.Runner, store Store, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		controls: controls,
		runner:   runner,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// SetOnResult sets the callback invoked once per control after each run.
// result stands for the control's run; prev is the previous status (nil on first run).
func (s *Scheduler) SetOnResult(fn func(control.Result, *control.Status)) {
	s.onResult = fn
}

// SetOnReport sets the callback invoked with every completed report.
func (s *Scheduler) SetOnReport(fn func(*control.Report)) {
	s.onReport = fn
}

// Start spawns the run loop. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Wait blocks until the run loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	// Fetch previous statuses before running.
	prev := make(map[string]*control.Status, len(s.controls))
	for _, c := range s.controls {
		latest, err := s.store.LatestResult(ctx, c.ID)
		if err != nil {
			s.logger.Warn("fetching previous result", "control", c.ID, "error", err)
			continue
		}
		if latest != nil {
			st := control.Status(latest.Status)
			prev[c.ID] = &st
		}
	}

	report := s.runner.Run(ctx, s.controls...)
	if ctx.Err() != nil {
		// Shutdown interrupted the run; its failures are not the target's.
		s.logger.Info("run interrupted by shutdown", "run", report.ID)
		return
	}

	s.logger.Info("run finished",
		"run", report.ID,
		"passed", report.Passed(),
		"failed", report.Failed(),
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	if err := s.store.InsertReport(ctx, report); err != nil {
		s.logger.Error("storing report", "run", report.ID, "error", err)
	}

	if s.onReport != nil {
		s.onReport(report)
	}
	if s.onResult != nil {
		for _, res := range report.ControlResults() {
			s.onResult(res, prev[res.Control])
		}
	}
}
