package models

import (
	"encoding/json"
	"time"
)

// InvocationResult is the outcome of one scenario invocation. It is
// immutable once produced by the runner.
type InvocationResult struct {
	Success  bool                   `json:"success"`
	Duration time.Duration          `json:"duration"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// ResultKey is the structural key attributing a result sequence to one
// invocation spec: scenario name, the spec's position in the plan, and its
// arguments. Pos preserves submission order for attribution even though raw
// results complete out of order.
type ResultKey struct {
	Name string                 `json:"name"`
	Pos  int                    `json:"pos"`
	Args map[string]interface{} `json:"kw"`
}

// String renders the key as canonical JSON, suitable for use as a map key
// or a storage column.
func (k ResultKey) String() string {
	data, err := json.Marshal(k)
	if err != nil {
		// Keys are built from plan data that already survived YAML and
		// JSON round-trips, so this is unreachable in practice.
		return k.Name
	}
	return string(data)
}

// ResultEntry pairs a structural key with the raw results recorded for it.
type ResultEntry struct {
	Key ResultKey
	Raw []InvocationResult
}
