package probe

import "fmt"

// Kind classifies a probe failure.
type Kind string

const (
	// KindUnreachable marks a failed TCP reachability sample. It is recovered
	// locally by the attempt loop and never fails a run on its own.
	KindUnreachable Kind = "unreachable"
	// KindRequestFailed marks a failed final GET, or an attempt loop that was
	// aborted before the GET could be issued.
	KindRequestFailed Kind = "request_failed"
)

// Error is the typed failure returned by Probe.Run.
type Error struct {
	Kind   Kind
	Target string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Target, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
