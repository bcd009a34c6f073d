// Package engine orchestrates one task end to end: bind a deployment's
// cloud configuration, verify the deployment with the external test suite,
// then execute the benchmark scenarios and collect their results.
package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/harrison/cloudbench/internal/genconf"
	"github.com/harrison/cloudbench/internal/models"
	"github.com/harrison/cloudbench/internal/verifier"
)

// Logger is the subset of logging the engine needs. It may be nil.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TaskStore persists task state. Satisfied by taskstore.Store.
type TaskStore interface {
	AppendStatus(ctx context.Context, taskUUID, status string) error
	AppendResults(ctx context.Context, taskUUID string, key models.ResultKey, results []models.InvocationResult) error
	SaveVerificationLog(ctx context.Context, taskUUID string, log interface{}) error
}

// ScenarioRunner executes one scenario spec. Satisfied by runner.Runner.
type ScenarioRunner interface {
	Run(ctx context.Context, name string, spec models.InvocationSpec) ([]models.InvocationResult, error)
}

// suiteRunner runs the verification tests. Satisfied by verifier.Verifier.
type suiteRunner interface {
	RunAll(ctx context.Context, tests []string) ([]verifier.Result, error)
}

// Options carries the collaborators and plan for one engine.
type Options struct {
	Task   *models.Task
	Plan   *models.TestPlan
	Store  TaskStore
	Runner ScenarioRunner

	// BaseConfigPath is the generated artifact holding discovered resource
	// references. Bind overlays the deployment's cloud configuration on top
	// of it. Optional: empty means bind from the cloud config alone.
	BaseConfigPath string

	VerifyTool     string
	VerifyTimeout  time.Duration
	AvailableTests []string
	KnownScenarios []string
	Logger         Logger
}

// Engine drives the verify-then-benchmark lifecycle for a single task. The
// plan is validated at construction, so execution never encounters an
// unknown test or scenario name.
type Engine struct {
	task           *models.Task
	plan           *models.TestPlan
	store          TaskStore
	runner         ScenarioRunner
	baseConfigPath string
	availableTests []string
	logger         Logger

	// newSuite builds the verification runner for a bound artifact path.
	// Swapped out in tests.
	newSuite func(configPath string) suiteRunner

	scope *Scope
}

// New normalizes and validates the plan and returns an engine ready to
// bind. A plan referencing an unknown test or scenario fails here, before
// anything executes.
func New(opts Options) (*Engine, error) {
	if opts.Task == nil || opts.Plan == nil {
		return nil, &models.InvalidConfigError{Message: "engine requires a task and a plan"}
	}
	opts.Plan.Normalize(opts.AvailableTests)
	if err := opts.Plan.Validate(opts.AvailableTests, opts.KnownScenarios); err != nil {
		return nil, err
	}

	tool, timeout := opts.VerifyTool, opts.VerifyTimeout
	return &Engine{
		task:           opts.Task,
		plan:           opts.Plan,
		store:          opts.Store,
		runner:         opts.Runner,
		baseConfigPath: opts.BaseConfigPath,
		availableTests: opts.AvailableTests,
		logger:         opts.Logger,
		newSuite: func(configPath string) suiteRunner {
			return verifier.New(tool, configPath, timeout)
		},
	}, nil
}

// Task returns the task this engine drives.
func (e *Engine) Task() *models.Task {
	return e.task
}

// Scope is a bound deployment configuration. Close removes the artifact it
// wrote; callers defer it so no exit path leaves the file behind.
type Scope struct {
	ConfigPath string
	engine     *Engine
}

// Close removes the bound artifact and detaches it from the engine. Safe to
// call more than once.
func (s *Scope) Close() error {
	if s.engine != nil && s.engine.scope == s {
		s.engine.scope = nil
	}
	s.engine = nil
	if s.ConfigPath == "" {
		return nil
	}
	err := os.Remove(s.ConfigPath)
	s.ConfigPath = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Bind overlays the deployment's cloud configuration on the generated
// artifact and writes the merged document to a temporary file the
// verification tool reads. The returned scope owns the artifact's lifetime.
// An engine holds at most one open scope; rebinding requires closing the
// previous scope first.
func (e *Engine) Bind(cloudConfig map[string]map[string]string) (*Scope, error) {
	if e.scope != nil {
		return nil, &models.InvalidConfigError{Message: "engine already bound; close the previous scope first"}
	}

	doc := genconf.New()
	if e.baseConfigPath != "" {
		var err error
		if doc, err = genconf.Load(e.baseConfigPath); err != nil {
			return nil, fmt.Errorf("load base config: %w", err)
		}
	}
	for section, options := range cloudConfig {
		for option, value := range options {
			doc.Set(section, option, value)
		}
	}

	tmp, err := os.CreateTemp("", "cloudbench-*.conf")
	if err != nil {
		return nil, fmt.Errorf("create bound config: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	if err := doc.Save(path); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write bound config: %w", err)
	}

	e.debugf("bound deployment config at %s", path)
	scope := &Scope{ConfigPath: path, engine: e}
	e.scope = scope
	return scope, nil
}

// notBoundErr reports use of an engine phase before Bind.
func (e *Engine) notBoundErr(phase string) error {
	return &models.InvalidConfigError{Message: fmt.Sprintf("%s requires a bound deployment config", phase)}
}

// Verify runs every selected verification test against the bound artifact.
// All tests run even when some fail; the full suite output is persisted as
// the task's verification log before any failure is reported.
func (e *Engine) Verify(ctx context.Context) ([]verifier.Result, error) {
	if e.scope == nil {
		return nil, e.notBoundErr("verify")
	}

	e.setStatus(ctx, models.TaskStatusVerifying)
	e.infof("verifying deployment: %d tests", len(e.plan.Verify.Tests))

	suite := e.newSuite(e.scope.ConfigPath)
	results, err := suite.RunAll(ctx, e.plan.Verify.Tests)
	if err != nil {
		return nil, err
	}

	if e.store != nil {
		if err := e.store.SaveVerificationLog(ctx, e.task.UUID, results); err != nil {
			return results, err
		}
	}

	if failure := verifier.FirstFailure(results); failure != nil {
		e.errorf("verification failed: %s", failure.Name)
		return results, &VerificationError{Test: failure.Name, Status: failure.Status, Message: failure.Message}
	}
	e.infof("verification passed")
	return results, nil
}

// Benchmark executes every benchmark scenario spec and returns the results
// grouped by canonical result key. Scenarios run in name order; specs run
// in their declared order, with the spec's position recorded in the key so
// identical configurations stay distinguishable.
func (e *Engine) Benchmark(ctx context.Context) (map[string][]models.InvocationResult, error) {
	if e.scope == nil {
		return nil, e.notBoundErr("benchmark")
	}

	e.setStatus(ctx, models.TaskStatusBenchmarking)

	names := make([]string, 0, len(e.plan.Benchmark.Scenarios))
	for name := range e.plan.Benchmark.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string][]models.InvocationResult)
	for _, name := range names {
		for pos, spec := range e.plan.Benchmark.Scenarios[name] {
			e.infof("benchmarking %s (spec %d): %d times, %d concurrent",
				name, pos, spec.Times, spec.Concurrent)

			results, err := e.runner.Run(ctx, name, spec)
			if err != nil {
				return out, err
			}

			key := models.ResultKey{Name: name, Pos: pos, Args: spec.Args}
			e.task.AppendResults(key, results)
			if e.store != nil {
				if err := e.store.AppendResults(ctx, e.task.UUID, key, results); err != nil {
					return out, err
				}
			}
			out[key.String()] = results
		}
	}
	return out, nil
}

// Finish marks the task finished.
func (e *Engine) Finish(ctx context.Context) {
	e.setStatus(ctx, models.TaskStatusFinished)
}

// Fail marks the task failed.
func (e *Engine) Fail(ctx context.Context) {
	e.setStatus(ctx, models.TaskStatusFailed)
}

// setStatus mutates the task and appends the transition to the store. A
// store write failure is logged, not fatal: the in-memory task remains the
// source of truth for the run.
func (e *Engine) setStatus(ctx context.Context, status string) {
	e.task.SetStatus(status)
	if e.store != nil {
		if err := e.store.AppendStatus(ctx, e.task.UUID, status); err != nil {
			e.errorf("record status %s: %v", status, err)
		}
	}
}

func (e *Engine) debugf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debugf(format, args...)
	}
}

func (e *Engine) infof(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Infof(format, args...)
	}
}

func (e *Engine) errorf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Errorf(format, args...)
	}
}
