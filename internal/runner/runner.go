package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harrison/cloudbench/internal/cloud"
	"github.com/harrison/cloudbench/internal/models"
)

// Logger is the subset of logging the runner needs. It may be nil.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}

// Runner schedules scenario invocations against one shared session.
type Runner struct {
	registry *Registry
	session  *cloud.Session
	logger   Logger
}

// New constructs a Runner. The logger may be nil to disable logging.
func New(registry *Registry, session *cloud.Session, logger Logger) *Runner {
	return &Runner{
		registry: registry,
		session:  session,
		logger:   logger,
	}
}

// Run executes the named scenario according to one invocation spec: Times
// invocations with at most Concurrent in flight. Every invocation produces
// exactly one InvocationResult; a failing invocation is recorded and never
// aborts its siblings. The returned slice always has len == spec.Times, in
// completion order.
//
// The only returned error is an unknown scenario name, which plan validation
// normally catches before execution.
func (r *Runner) Run(ctx context.Context, name string, spec models.InvocationSpec) ([]models.InvocationResult, error) {
	fn, ok := r.registry.Lookup(name)
	if !ok {
		return nil, &models.NoSuchScenarioError{Name: name}
	}

	times := spec.Times
	if times < 1 {
		times = 1
	}
	concurrent := spec.Concurrent
	if concurrent < 1 {
		concurrent = 1
	}
	if concurrent > times {
		concurrent = times
	}

	if r.logger != nil {
		r.logger.Debugf("scenario %s: %d invocations, %d concurrent", name, times, concurrent)
	}

	// Bounded admission: a slot is taken before each invocation launches,
	// so invocation k+concurrent cannot start until one of the in-flight
	// invocations finishes.
	semaphore := make(chan struct{}, concurrent)
	resultsCh := make(chan models.InvocationResult, times)

	var wg sync.WaitGroup
	for i := 0; i < times; i++ {
		semaphore <- struct{}{}
		wg.Add(1)

		go func(iteration int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsCh <- r.invoke(ctx, fn, spec.Args, iteration)
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	results := make([]models.InvocationResult, 0, times)
	for result := range resultsCh {
		results = append(results, result)
	}

	if r.logger != nil {
		r.logger.Infof("scenario %s: completed %d invocations", name, len(results))
	}
	return results, nil
}

// invoke runs one scenario invocation, capturing wall-clock duration and
// converting a panic or error into a failed result.
func (r *Runner) invoke(ctx context.Context, fn Scenario, args map[string]interface{}, iteration int) (result models.InvocationResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = models.InvocationResult{
				Duration: time.Since(start),
				Error:    fmt.Sprintf("scenario panic: %v", rec),
			}
		}
	}()

	payload, err := fn(ctx, r.session, invocationArgs(args, iteration))
	result = models.InvocationResult{
		Success:  err == nil,
		Duration: time.Since(start),
		Payload:  payload,
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result
}

// invocationArgs copies the spec args and adds the loop-specific iteration
// index. The spec's own args map is never mutated.
func invocationArgs(args map[string]interface{}, iteration int) map[string]interface{} {
	merged := make(map[string]interface{}, len(args)+1)
	for k, v := range args {
		merged[k] = v
	}
	merged["iteration"] = iteration
	return merged
}
