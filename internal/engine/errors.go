package engine

import "fmt"

// VerificationError reports the first verification test that failed. The
// complete suite output is persisted separately; this error is the fatal
// signal that stops the task before benchmarking.
type VerificationError struct {
	Test    string
	Status  int
	Message string
}

func (e *VerificationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("verification test %s failed (status %d): %s", e.Test, e.Status, e.Message)
	}
	return fmt.Sprintf("verification test %s failed (status %d)", e.Test, e.Status)
}
