// Package runner executes named benchmark scenarios under the concurrency
// bounds declared by their invocation specs and records one result per
// invocation.
package runner

import (
	"context"
	"sort"
	"sync"

	"github.com/harrison/cloudbench/internal/cloud"
)

// Scenario is a named, parameterizable unit of load-generating work. It
// receives the shared read-only session plus the invocation args and returns
// an optional payload. Scenario bodies own their retries and blocking calls;
// the runner only schedules them.
type Scenario func(ctx context.Context, sess *cloud.Session, args map[string]interface{}) (map[string]interface{}, error)

// Registry maps scenario names to their functions.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewRegistry returns an empty scenario registry.
func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]Scenario)}
}

// Register adds a scenario under the given name, replacing any previous
// registration.
func (r *Registry) Register(name string, fn Scenario) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[name] = fn
}

// Lookup returns the scenario registered under name.
func (r *Registry) Lookup(name string) (Scenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.scenarios[name]
	return fn, ok
}

// Names returns the registered scenario names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
