package models

import "fmt"

// InvalidConfigError indicates a plan that fails validation. It is fatal
// and surfaced before any execution begins.
type InvalidConfigError struct {
	Message string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid test plan: %s", e.Message)
}

// NoSuchTestError indicates a plan referencing an unknown verification test.
type NoSuchTestError struct {
	Name string
}

func (e *NoSuchTestError) Error() string {
	return fmt.Sprintf("no such verification test: %s", e.Name)
}

// NoSuchScenarioError indicates a plan referencing an unknown benchmark
// scenario.
type NoSuchScenarioError struct {
	Name string
}

func (e *NoSuchScenarioError) Error() string {
	return fmt.Sprintf("no such benchmark scenario: %s", e.Name)
}
