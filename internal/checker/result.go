package checker

import "time"

// Status represents the outcome of a single reachability or request check.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Target       string
	Status       Status
	ResponseTime time.Duration
	Error        string
	CheckedAt    time.Time
}

// Up reports whether the check succeeded.
func (r CheckResult) Up() bool {
	return r.Status == StatusUp
}
