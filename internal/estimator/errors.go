package estimator

import (
	"errors"
	"fmt"
)

// ErrInvalidSample is matched by every InvalidSampleError.
var ErrInvalidSample = errors.New("invalid sample")

// InvalidSampleError reports a sample the estimator refused. State is left untouched.
type InvalidSampleError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidSampleError) Error() string {
	return fmt.Sprintf("invalid sample: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidSample) match.
func (e *InvalidSampleError) Unwrap() error {
	return ErrInvalidSample
}
