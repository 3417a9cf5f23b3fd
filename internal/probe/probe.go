// Package probe implements the retrying reachability check: a fixed number of
// TCP reachability samples against host:port followed by one HTTP GET.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hazz-dev/reachprobe/internal/checker"
)

const (
	DefaultAttempts = 10
	DefaultDelay    = 10 * time.Second
	DefaultPort     = 443
	DefaultName     = "Gitlab"
)

// Options tunes the attempt loop. Zero values fall back to the defaults.
type Options struct {
	// Name is used in the diagnostic notice printed for each failed sample.
	Name     string
	Attempts int
	Delay    time.Duration
	Port     int
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Attempts == 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Attempts < 1 {
		o.Attempts = 1
	}
	if o.Delay == 0 {
		o.Delay = DefaultDelay
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	return o
}

// Recorder observes every check the probe performs.
type Recorder interface {
	ObserveAttempt(result checker.CheckResult)
	ObserveRequest(result checker.CheckResult)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Probe runs the reachability check. A Probe is not safe for concurrent use.
type Probe struct {
	opts     Options
	reach    checker.Checker
	fetch    checker.Checker
	sleep    SleepFunc
	notices  io.Writer
	recorder Recorder
	logger   *slog.Logger
}

// New creates a Probe sampling reachability with reach and issuing the final
// GET with fetch. Notices go to stdout until SetNotices is called. Pass nil
// logger to use the default logger.
func New(opts Options, reach, fetch checker.Checker, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		opts:    opts.withDefaults(),
		reach:   reach,
		fetch:   fetch,
		sleep:   Sleep,
		notices: os.Stdout,
		logger:  logger,
	}
}

// SetNotices sets the writer receiving one line per failed reachability sample.
func (p *Probe) SetNotices(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	p.notices = w
}

// SetSleep replaces the pause taken after a failed sample.
func (p *Probe) SetSleep(fn SleepFunc) {
	p.sleep = fn
}

// SetRecorder sets the observer of every check result.
func (p *Probe) SetRecorder(r Recorder) {
	p.recorder = r
}

// Options returns the effective options after defaults.
func (p *Probe) Options() Options {
	return p.opts
}

// DeriveHost strips a single leading "https://" from target. Anything else,
// including "http://" URLs and bare hosts, is returned unchanged.
func DeriveHost(target string) string {
	return strings.TrimPrefix(target, "https://")
}

// Outcome describes everything a run observed.
type Outcome struct {
	Target      string
	Host        string
	Attempts    []checker.CheckResult
	Unreachable int
	Request     *checker.CheckResult
}

// Reachability returns a KindUnreachable error when no sample reached the
// host, nil otherwise. It does not affect whether the run passed.
func (o Outcome) Reachability() error {
	if len(o.Attempts) == 0 || o.Unreachable < len(o.Attempts) {
		return nil
	}
	last := o.Attempts[len(o.Attempts)-1]
	return &Error{
		Kind:   KindUnreachable,
		Target: o.Target,
		Err:    fmt.Errorf("%d of %d samples failed, last: %s", o.Unreachable, len(o.Attempts), last.Error),
	}
}

// Run samples TCP reachability of DeriveHost(target) on the configured port
// exactly Attempts times, pausing after each failed sample, then issues one
// GET to target. Only the GET decides the result; the loop never stops
// early on success.
func (p *Probe) Run(ctx context.Context, target string) (Outcome, error) {
	host := DeriveHost(target)
	addr := net.JoinHostPort(host, strconv.Itoa(p.opts.Port))
	out := Outcome{
		Target:   target,
		Host:     host,
		Attempts: make([]checker.CheckResult, 0, p.opts.Attempts),
	}

	for i := 0; i < p.opts.Attempts; i++ {
		res := p.reach.Check(ctx, addr)
		out.Attempts = append(out.Attempts, res)
		if p.recorder != nil {
			p.recorder.ObserveAttempt(res)
		}
		if res.Up() {
			continue
		}

		out.Unreachable++
		fmt.Fprintf(p.notices, "%s is not reachable, retrying..\n", p.opts.Name)
		p.logger.Debug("reachability sample failed",
			"addr", addr,
			"attempt", i+1,
			"attempts", p.opts.Attempts,
			"error", res.Error,
		)
		if err := p.sleep(ctx, p.opts.Delay); err != nil {
			return out, &Error{
				Kind:   KindRequestFailed,
				Target: target,
				Err:    fmt.Errorf("reachability loop aborted after attempt %d: %w", i+1, err),
			}
		}
	}

	res := p.fetch.Check(ctx, target)
	out.Request = &res
	if p.recorder != nil {
		p.recorder.ObserveRequest(res)
	}
	if !res.Up() {
		return out, &Error{
			Kind:   KindRequestFailed,
			Target: target,
			Err:    errors.New(res.Error),
		}
	}
	return out, nil
}
