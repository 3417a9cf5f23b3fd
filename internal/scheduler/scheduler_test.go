package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazz-dev/reachprobe/internal/control"
	"github.com/hazz-dev/reachprobe/internal/scheduler"
	"github.com/hazz-dev/reachprobe/internal/storage"
)

// mockStore records inserted reports.
type mockStore struct {
	mu      sync.Mutex
	reports []*control.Report
	latest  map[string]*storage.Result
	err     error
}

func (m *mockStore) InsertReport(_ context.Context, r *control.Report) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.reports = append(m.reports, r)
	m.mu.Unlock()
	return nil
}

func (m *mockStore) LatestResult(_ context.Context, controlID string) (*storage.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest != nil {
		return m.latest[controlID], nil
	}
	return nil, nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

func makeControls(fn control.ExampleFunc) []*control.Control {
	c := control.New("gcloud", "gitlab url")
	c.Describe("gitlab").It("is reachable", fn)
	return []*control.Control{c}
}

func passing(context.Context) error { return nil }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_RunsImmediately(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(makeControls(passing), control.NewRunner(nil), store, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	waitFor(t, func() bool { return store.count() >= 1 })
	if store.count() < 1 {
		t.Error("expected a run to start immediately")
	}
	cancel()
	sched.Wait()
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(makeControls(passing), control.NewRunner(nil), store, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	sched.Start(ctx)
	<-ctx.Done()
	sched.Wait()

	// 1 immediate + ~5 ticks in 300ms.
	if n := store.count(); n < 3 {
		t.Errorf("expected at least 3 runs in 300ms, got %d", n)
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	store := &mockStore{}
	sched := scheduler.New(makeControls(passing), control.NewRunner(nil), store, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Wait() did not return within 2s after context cancel")
	}
}

func TestScheduler_InterruptedRunNotStored(t *testing.T) {
	store := &mockStore{}
	started := make(chan struct{})
	blocking := func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
	sched := scheduler.New(makeControls(blocking), control.NewRunner(nil), store, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	<-started
	cancel()
	sched.Wait()

	if n := store.count(); n != 0 {
		t.Errorf("expected interrupted run to be dropped, got %d stored", n)
	}
}

func TestScheduler_OnResultReceivesPrevious(t *testing.T) {
	prev := &storage.Result{Control: "gcloud", Status: "passed"}
	store := &mockStore{latest: map[string]*storage.Result{"gcloud": prev}}

	type call struct {
		res  control.Result
		prev *control.Status
	}
	calls := make(chan call, 1)
	sched := scheduler.New(makeControls(func(context.Context) error {
		return errors.New("connection refused")
	}), control.NewRunner(nil), store, time.Hour, nil)
	sched.SetOnResult(func(r control.Result, p *control.Status) {
		select {
		case calls <- call{r, p}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	select {
	case c := <-calls:
		if c.res.Status != control.StatusFailed {
			t.Errorf("expected failed result, got %q", c.res.Status)
		}
		if c.prev == nil || *c.prev != control.StatusPassed {
			t.Errorf("expected previous status passed, got %v", c.prev)
		}
	case <-time.After(2 * time.Second):
		t.Error("onResult was not called")
	}
	cancel()
	sched.Wait()
}

func TestScheduler_OnReportCallback(t *testing.T) {
	store := &mockStore{}
	var reports int32
	sched := scheduler.New(makeControls(passing), control.NewRunner(nil), store, time.Hour, nil)
	sched.SetOnReport(func(*control.Report) { atomic.AddInt32(&reports, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	waitFor(t, func() bool { return atomic.LoadInt32(&reports) >= 1 })
	cancel()
	sched.Wait()

	if atomic.LoadInt32(&reports) < 1 {
		t.Error("expected onReport callback to be called at least once")
	}
}

func TestScheduler_StoreErrorDoesNotCrash(t *testing.T) {
	store := &mockStore{err: context.DeadlineExceeded}
	sched := scheduler.New(makeControls(passing), control.NewRunner(nil), store, time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sched.Start(ctx)
	<-ctx.Done()
	sched.Wait()
}
