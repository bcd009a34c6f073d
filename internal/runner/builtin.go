package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/harrison/cloudbench/internal/cloud"
)

// DefaultRegistry returns a registry preloaded with the builtin scenarios.
// Builtins exercise the scheduling machinery without touching the platform,
// which makes them useful for smoke-testing a benchmark pipeline.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("dummy.sleep", dummySleep)
	r.Register("dummy.failure", dummyFailure)
	return r
}

// dummySleep sleeps for args["sleep"] seconds (default 0) and succeeds.
func dummySleep(ctx context.Context, _ *cloud.Session, args map[string]interface{}) (map[string]interface{}, error) {
	seconds, _ := args["sleep"].(float64)
	if intSeconds, ok := args["sleep"].(int); ok {
		seconds = float64(intSeconds)
	}
	if seconds > 0 {
		select {
		case <-time.After(time.Duration(seconds * float64(time.Second))):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return map[string]interface{}{"slept": seconds}, nil
}

// dummyFailure always fails with the configured message.
func dummyFailure(_ context.Context, _ *cloud.Session, args map[string]interface{}) (map[string]interface{}, error) {
	message, _ := args["message"].(string)
	if message == "" {
		message = "dummy failure"
	}
	return nil, fmt.Errorf("%s", message)
}
