package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when any operation runs before Init has
	// completed successfully.
	ErrNotInitialized = errors.New("gpu: not initialized")
	// ErrNotFound is returned when an id does not reference a live resource.
	ErrNotFound = errors.New("gpu: id not found")
	// ErrFunctionNotFound reports a dispatch against a dead function id.
	ErrFunctionNotFound = errors.New("gpu: function not found")
	// ErrBufferNotFound reports a dispatch against a dead buffer id.
	ErrBufferNotFound = errors.New("gpu: buffer not found")
	// ErrNativeFailure reports an error surfaced by the native backend.
	ErrNativeFailure = errors.New("gpu: native failure")
)

// A CompileError reports a failed kernel compilation. Diagnostic carries the
// backend's message verbatim.
type CompileError struct {
	Diagnostic string
}

func (e *CompileError) Error() string {
	return "gpu: unable to set up kernel function: " + e.Diagnostic
}

// An AllocationError reports a failed buffer allocation.
type AllocationError struct {
	Reason string
}

func (e *AllocationError) Error() string {
	return "gpu: unable to create buffer: " + e.Reason
}

// A DispatchError reports a failed kernel dispatch. Nothing was submitted to
// the native queue when Kind is ErrFunctionNotFound or ErrBufferNotFound.
type DispatchError struct {
	// Kind is ErrFunctionNotFound, ErrBufferNotFound, or ErrNativeFailure.
	Kind error
	// Index is the position of the missing buffer argument when Kind is
	// ErrBufferNotFound, and -1 otherwise.
	Index int
	// Message carries the backend's diagnostic verbatim when Kind is
	// ErrNativeFailure.
	Message string
}

func (e *DispatchError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrBufferNotFound):
		return fmt.Sprintf("%s (argument %d)", e.Kind, e.Index)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return e.Kind.Error()
	}
}

func (e *DispatchError) Unwrap() error {
	return e.Kind
}

func nativeErr(err error) *DispatchError {
	return &DispatchError{
		Kind:    ErrNativeFailure,
		Index:   -1,
		Message: err.Error(),
	}
}
