package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harrison/cloudbench/internal/cloud"
	"github.com/harrison/cloudbench/internal/models"
)

// trackingScenario counts how many invocations are in flight at once.
type trackingScenario struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    int32
}

func (ts *trackingScenario) fn(ctx context.Context, _ *cloud.Session, args map[string]interface{}) (map[string]interface{}, error) {
	ts.mu.Lock()
	ts.inFlight++
	if ts.inFlight > ts.peak {
		ts.peak = ts.inFlight
	}
	ts.mu.Unlock()

	atomic.AddInt32(&ts.calls, 1)
	time.Sleep(5 * time.Millisecond)

	ts.mu.Lock()
	ts.inFlight--
	ts.mu.Unlock()
	return nil, nil
}

func TestRunProducesOneResultPerInvocation(t *testing.T) {
	tracking := &trackingScenario{}
	registry := NewRegistry()
	registry.Register("svc.op", tracking.fn)
	r := New(registry, nil, nil)

	results, err := r.Run(context.Background(), "svc.op", models.InvocationSpec{Times: 7, Concurrent: 3})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 7 {
		t.Errorf("got %d results, want 7", len(results))
	}
	if calls := atomic.LoadInt32(&tracking.calls); calls != 7 {
		t.Errorf("scenario called %d times, want 7", calls)
	}
	for i, result := range results {
		if !result.Success {
			t.Errorf("result %d not successful: %s", i, result.Error)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	tracking := &trackingScenario{}
	registry := NewRegistry()
	registry.Register("svc.op", tracking.fn)
	r := New(registry, nil, nil)

	if _, err := r.Run(context.Background(), "svc.op", models.InvocationSpec{Times: 12, Concurrent: 2}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if tracking.peak > 2 {
		t.Errorf("peak in-flight invocations = %d, want <= 2", tracking.peak)
	}
}

func TestRunClampsConcurrentToTimes(t *testing.T) {
	tracking := &trackingScenario{}
	registry := NewRegistry()
	registry.Register("svc.op", tracking.fn)
	r := New(registry, nil, nil)

	results, err := r.Run(context.Background(), "svc.op", models.InvocationSpec{Times: 2, Concurrent: 50})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
	if tracking.peak > 2 {
		t.Errorf("peak in-flight invocations = %d, want <= 2", tracking.peak)
	}
}

func TestRunFailuresAreRecordedNotFatal(t *testing.T) {
	var calls int32
	registry := NewRegistry()
	registry.Register("svc.flaky", func(_ context.Context, _ *cloud.Session, args map[string]interface{}) (map[string]interface{}, error) {
		n := atomic.AddInt32(&calls, 1)
		if n%2 == 0 {
			return nil, errors.New("backend unavailable")
		}
		return map[string]interface{}{"ok": true}, nil
	})
	r := New(registry, nil, nil)

	results, err := r.Run(context.Background(), "svc.flaky", models.InvocationSpec{Times: 6, Concurrent: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 6 {
		t.Fatalf("got %d results, want 6", len(results))
	}
	var failures int
	for _, result := range results {
		if !result.Success {
			failures++
			if result.Error != "backend unavailable" {
				t.Errorf("Error = %q, want %q", result.Error, "backend unavailable")
			}
		}
	}
	if failures != 3 {
		t.Errorf("got %d failures, want 3", failures)
	}
}

func TestRunRecoversScenarioPanic(t *testing.T) {
	registry := NewRegistry()
	registry.Register("svc.panics", func(_ context.Context, _ *cloud.Session, _ map[string]interface{}) (map[string]interface{}, error) {
		panic("nil deref in scenario body")
	})
	r := New(registry, nil, nil)

	results, err := r.Run(context.Background(), "svc.panics", models.InvocationSpec{Times: 2, Concurrent: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, result := range results {
		if result.Success {
			t.Error("panicking invocation reported success")
		}
	}
}

func TestRunUnknownScenario(t *testing.T) {
	r := New(NewRegistry(), nil, nil)

	_, err := r.Run(context.Background(), "svc.missing", models.InvocationSpec{Times: 1, Concurrent: 1})
	var noSuch *models.NoSuchScenarioError
	if !errors.As(err, &noSuch) {
		t.Fatalf("Run() error = %v, want NoSuchScenarioError", err)
	}
}

func TestRunPassesIterationIndex(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}
	registry := NewRegistry()
	registry.Register("svc.op", func(_ context.Context, _ *cloud.Session, args map[string]interface{}) (map[string]interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		seen[args["iteration"].(int)] = true
		if args["n"] != 5 {
			return nil, errors.New("args not passed through")
		}
		return nil, nil
	})
	r := New(registry, nil, nil)

	spec := models.InvocationSpec{Args: map[string]interface{}{"n": 5}, Times: 4, Concurrent: 2}
	results, err := r.Run(context.Background(), "svc.op", spec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("invocation failed: %s", result.Error)
		}
	}
	for i := 0; i < 4; i++ {
		if !seen[i] {
			t.Errorf("iteration %d never invoked", i)
		}
	}
	if len(spec.Args) != 1 {
		t.Errorf("spec args mutated: %v", spec.Args)
	}
}

func TestRunRecordsDurations(t *testing.T) {
	registry := NewRegistry()
	registry.Register("svc.op", func(_ context.Context, _ *cloud.Session, _ map[string]interface{}) (map[string]interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return nil, nil
	})
	r := New(registry, nil, nil)

	results, err := r.Run(context.Background(), "svc.op", models.InvocationSpec{Times: 1, Concurrent: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Duration < 10*time.Millisecond {
		t.Errorf("Duration = %v, want >= 10ms", results[0].Duration)
	}
}

func TestDefaultRegistryBuiltins(t *testing.T) {
	registry := DefaultRegistry()
	r := New(registry, nil, nil)

	results, err := r.Run(context.Background(), "dummy.sleep", models.InvocationSpec{Times: 1, Concurrent: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !results[0].Success {
		t.Errorf("dummy.sleep failed: %s", results[0].Error)
	}

	results, err = r.Run(context.Background(), "dummy.failure", models.InvocationSpec{Times: 1, Concurrent: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if results[0].Success {
		t.Error("dummy.failure reported success")
	}
}
