package checker

import (
	"context"
	"fmt"
	"time"
)

// Checker performs a single check against a target.
// For TCP checkers the target is a host:port address, for HTTP a full URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

// Options configures a Checker built by New.
type Options struct {
	Timeout        time.Duration
	ExpectedStatus int
	Headers        map[string]string
}

// New returns the Checker for the given kind ("tcp" or "http").
func New(kind string, opts Options) (Checker, error) {
	switch kind {
	case "tcp":
		return NewTCP(opts.Timeout), nil
	case "http":
		return NewHTTP(opts), nil
	default:
		return nil, fmt.Errorf("unknown checker type %q", kind)
	}
}
