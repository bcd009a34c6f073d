package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InvocationSpec declares one repetition/concurrency configuration for a
// benchmark scenario: run the scenario Times times with at most Concurrent
// invocations in flight.
type InvocationSpec struct {
	Args       map[string]interface{} `yaml:"args" json:"args"`
	Times      int                    `yaml:"times" json:"times"`
	Concurrent int                    `yaml:"concurrent" json:"concurrent"`
}

// Normalize fills defaults and clamps Concurrent to Times so a spec never
// requests more parallelism than it has work.
func (s *InvocationSpec) Normalize() {
	if s.Times < 1 {
		s.Times = 1
	}
	if s.Concurrent < 1 {
		s.Concurrent = 1
	}
	if s.Concurrent > s.Times {
		s.Concurrent = s.Times
	}
}

// VerifySection selects which verification tests to run.
type VerifySection struct {
	Tests []string `yaml:"tests"`
}

// BenchmarkSection maps scenario names to their ordered invocation specs.
type BenchmarkSection struct {
	Scenarios map[string][]InvocationSpec `yaml:"scenarios"`
}

// TestPlan is the normalized declarative plan driving one task: the set of
// verification tests to run and the benchmark scenarios with their
// invocation specs. A plan is immutable once normalized and validated.
type TestPlan struct {
	Verify    VerifySection    `yaml:"verify"`
	Benchmark BenchmarkSection `yaml:"benchmark"`
}

// LoadPlan reads a test plan from a YAML file.
func LoadPlan(path string) (*TestPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	var plan TestPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, &InvalidConfigError{Message: err.Error()}
	}
	return &plan, nil
}

// Normalize fills defaults into the plan: specs get their per-spec defaults
// and an empty verify set expands to every available verification test.
func (p *TestPlan) Normalize(availableTests []string) {
	if len(p.Verify.Tests) == 0 {
		p.Verify.Tests = append([]string(nil), availableTests...)
	}
	for name, specs := range p.Benchmark.Scenarios {
		for i := range specs {
			specs[i].Normalize()
		}
		p.Benchmark.Scenarios[name] = specs
	}
}

// Validate checks every name the plan references against the known
// verification tests and benchmark scenarios, and every spec for sane
// repetition counts. Validation failures are fatal before any execution.
func (p *TestPlan) Validate(knownTests []string, knownScenarios []string) error {
	tests := make(map[string]bool, len(knownTests))
	for _, t := range knownTests {
		tests[t] = true
	}
	for _, t := range p.Verify.Tests {
		if !tests[t] {
			return &NoSuchTestError{Name: t}
		}
	}

	scenarios := make(map[string]bool, len(knownScenarios))
	for _, s := range knownScenarios {
		scenarios[s] = true
	}
	for name, specs := range p.Benchmark.Scenarios {
		if !scenarios[name] {
			return &NoSuchScenarioError{Name: name}
		}
		for i, spec := range specs {
			if spec.Times < 1 {
				return &InvalidConfigError{Message: fmt.Sprintf(
					"scenario %s spec %d: times must be >= 1, got %d", name, i, spec.Times)}
			}
			if spec.Concurrent < 1 {
				return &InvalidConfigError{Message: fmt.Sprintf(
					"scenario %s spec %d: concurrent must be >= 1, got %d", name, i, spec.Concurrent)}
			}
		}
	}
	return nil
}
