package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Runner executes controls sequentially in registration order.
type Runner struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner creates a Runner. Pass nil logger to use the default logger.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, now: time.Now}
}

// Run executes every example of every control and returns the report.
func (r *Runner) Run(ctx context.Context, controls ...*Control) *Report {
	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: r.now().UTC(),
	}

	for _, c := range controls {
		for _, d := range c.Describes {
			for _, ex := range d.Examples {
				res := r.runExample(ctx, c, d, ex)
				r.logger.Info("example finished",
					"run", report.ID,
					"control", c.ID,
					"example", res.Name(),
					"status", res.Status,
					"duration", res.Duration,
					"error", res.Error,
				)
				report.Results = append(report.Results, res)
			}
		}
	}

	report.FinishedAt = r.now().UTC()
	return report
}

func (r *Runner) runExample(ctx context.Context, c *Control, d *Describe, ex Example) (res Result) {
	start := r.now()
	res = Result{
		Control:   c.ID,
		Title:     c.Title,
		Subject:   d.Subject,
		Example:   ex.Name,
		StartedAt: start.UTC(),
	}

	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Error = fmt.Sprintf("panic: %v", p)
		}
		res.Duration = r.now().Sub(start)
	}()

	if ex.Run == nil {
		res.Status = StatusFailed
		res.Error = "example has no body"
		return res
	}
	if err := ex.Run(ctx); err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}
	res.Status = StatusPassed
	return res
}
