// Package verifier runs the external verification test suite against a
// generated configuration artifact and reports pass/fail per test.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the outcome of one verification test: the tool's exit status
// and its combined output. Status 0 means the test passed.
type Result struct {
	Name    string `json:"name"`
	Status  int    `json:"status"`
	Message string `json:"msg"`
}

// commandRunner invokes one test and returns its combined output and exit
// status. Swapped out in tests.
type commandRunner func(ctx context.Context, tool, configPath, test string) (output string, status int, err error)

// Verifier invokes the external test tool once per selected test. Each test
// is opaque; the verifier only captures its exit status and message. The
// artifact at ConfigPath is externally owned and read by the tool.
type Verifier struct {
	tool       string
	configPath string
	timeout    time.Duration
	run        commandRunner
	list       listRunner
}

// listRunner enumerates the tests the tool knows about. Swapped in tests.
type listRunner func(ctx context.Context, tool string) (string, error)

// New constructs a Verifier for the given test tool binary and artifact
// path. A zero timeout disables the per-test bound.
func New(tool, configPath string, timeout time.Duration) *Verifier {
	return &Verifier{
		tool:       tool,
		configPath: configPath,
		timeout:    timeout,
		run:        runCommand,
		list:       listCommand,
	}
}

// runCommand executes the test tool for a single test.
func runCommand(ctx context.Context, tool, configPath, test string) (string, int, error) {
	cmd := exec.CommandContext(ctx, tool, "run", "--conf", configPath, test)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return string(output), 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return string(output), exitErr.ExitCode(), nil
	}
	// The tool could not be started at all.
	return string(output), -1, err
}

// listCommand asks the tool for its test listing, one test per line.
func listCommand(ctx context.Context, tool string) (string, error) {
	output, err := exec.CommandContext(ctx, tool, "list").Output()
	return string(output), err
}

// ListTests returns every test the tool can run, in the tool's order.
func (v *Verifier) ListTests(ctx context.Context) ([]string, error) {
	output, err := v.list(ctx, v.tool)
	if err != nil {
		return nil, fmt.Errorf("list tests with %s: %w", v.tool, err)
	}
	var tests []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tests = append(tests, line)
		}
	}
	return tests, nil
}

// RunAll invokes every test in the declared order and returns one result
// per test, in that order. It never stops early: a failing test still lets
// the remaining tests run so the full suite status is known.
func (v *Verifier) RunAll(ctx context.Context, tests []string) ([]Result, error) {
	results := make([]Result, 0, len(tests))
	for _, test := range tests {
		testCtx := ctx
		var cancel context.CancelFunc
		if v.timeout > 0 {
			testCtx, cancel = context.WithTimeout(ctx, v.timeout)
		}

		output, status, err := v.run(testCtx, v.tool, v.configPath, test)
		if cancel != nil {
			cancel()
		}

		message := strings.TrimSpace(output)
		if err != nil {
			if message == "" {
				message = err.Error()
			}
			if status == 0 {
				status = -1
			}
		}
		results = append(results, Result{Name: test, Status: status, Message: message})
	}
	return results, nil
}

// FirstFailure returns the first result with a non-zero status, or nil when
// the whole suite passed. Its message is the aggregate failure signal.
func FirstFailure(results []Result) *Result {
	for i := range results {
		if results[i].Status != 0 {
			return &results[i]
		}
	}
	return nil
}
