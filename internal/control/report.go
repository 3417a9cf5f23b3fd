package control

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Status is the outcome of one executed example.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// Result is one executed example.
type Result struct {
	Control   string        `json:"control"`
	Title     string        `json:"title"`
	Subject   string        `json:"subject"`
	Example   string        `json:"example"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// Name is the describe subject followed by the example name, e.g. "gitlab is reachable".
func (r Result) Name() string {
	return r.Subject + " " + r.Example
}

// Report holds the results of one run, in execution order.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Passed reports whether every example passed.
func (r *Report) Passed() bool {
	return r.Failed() == 0
}

// Failed returns the number of failed examples.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Err returns every failed example as a multierror, or nil when all passed.
func (r *Report) Err() error {
	var merr *multierror.Error
	for _, res := range r.Results {
		if res.Status != StatusFailed {
			continue
		}
		merr = multierror.Append(merr, fmt.Errorf("%s %s: %s", res.Control, res.Name(), res.Error))
	}
	return merr.ErrorOrNil()
}

// ControlResults returns one result per control, in first-seen order: the
// first failed example of the control, or its last example when all passed.
func (r *Report) ControlResults() []Result {
	var out []Result
	idx := make(map[string]int)
	for _, res := range r.Results {
		i, ok := idx[res.Control]
		if !ok {
			idx[res.Control] = len(out)
			out = append(out, res)
			continue
		}
		if out[i].Status != StatusFailed {
			out[i] = res
		}
	}
	return out
}

// ControlStatus maps control IDs to their status for this run.
func (r *Report) ControlStatus() map[string]Status {
	out := make(map[string]Status)
	for _, res := range r.ControlResults() {
		out[res.Control] = res.Status
	}
	return out
}
