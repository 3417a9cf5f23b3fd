package checker

import (
	"context"
	"net"
	"time"
)

// DefaultTCPTimeout bounds a single connect attempt when no timeout is set.
const DefaultTCPTimeout = 5 * time.Second

// TCP reports whether a host:port accepts connections. No data is exchanged.
type TCP struct {
	timeout time.Duration
}

// NewTCP returns a TCP checker. A zero timeout uses DefaultTCPTimeout.
func NewTCP(timeout time.Duration) *TCP {
	if timeout <= 0 {
		timeout = DefaultTCPTimeout
	}
	return &TCP{timeout: timeout}
}

func (c *TCP) Check(ctx context.Context, addr string) CheckResult {
	start := time.Now()
	result := CheckResult{
		Target:    addr,
		CheckedAt: start,
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Status = StatusDown
		result.Error = err.Error()
		return result
	}
	conn.Close()
	result.Status = StatusUp
	return result
}
