package lifecycle

import "fmt"

// AcquisitionError indicates that provisioning an auxiliary resource could
// not complete: a failed download, a failed remote create, or an unreachable
// catalog. It is fatal to the setup call, but cleanup of whatever was
// already created still runs.
type AcquisitionError struct {
	Resource ResourceKind
	Message  string
	Err      error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to acquire %s: %s: %v", e.Resource, e.Message, e.Err)
	}
	return fmt.Sprintf("failed to acquire %s: %s", e.Resource, e.Message)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

func acquisitionErr(kind ResourceKind, err error, format string, args ...interface{}) *AcquisitionError {
	return &AcquisitionError{
		Resource: kind,
		Message:  fmt.Sprintf(format, args...),
		Err:      err,
	}
}
