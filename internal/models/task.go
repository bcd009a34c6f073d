package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status constants describing the lifecycle of one benchmark run
const (
	TaskStatusCreated      = "created"
	TaskStatusVerifying    = "verifying"
	TaskStatusBenchmarking = "benchmarking"
	TaskStatusFinished     = "finished"
	TaskStatusFailed       = "failed"
)

// Task identifies a single verification/benchmark execution against one
// deployment. The engine mutates its status and appends result entries;
// the task itself is owned by the caller and never destroyed here.
type Task struct {
	UUID      string        // Task identifier
	Status    string        // Current lifecycle status
	CreatedAt time.Time     // Timestamp the task was created
	Results   []ResultEntry // Result entries in append order
}

// NewTask creates a Task in the "created" status with a fresh UUID.
func NewTask() *Task {
	return &Task{
		UUID:      uuid.NewString(),
		Status:    TaskStatusCreated,
		CreatedAt: time.Now(),
	}
}

// SetStatus records a status transition on the task.
func (t *Task) SetStatus(status string) {
	t.Status = status
}

// AppendResults appends one result entry for the given structural key.
// Entries accumulate in submission order even when the invocations behind
// them completed out of order.
func (t *Task) AppendResults(key ResultKey, raw []InvocationResult) {
	t.Results = append(t.Results, ResultEntry{Key: key, Raw: raw})
}
