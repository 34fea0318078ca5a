package fifoq

import (
	"errors"
	"fmt"
)

// Common errors returned by queue operations
var (
	// ErrNotChannel indicates a path exists but is not a named pipe
	ErrNotChannel = errors.New("fifoq: not a named pipe")

	// ErrOversize indicates a payload exceeds the channel's frame capacity;
	// nothing is written when it is returned
	ErrOversize = errors.New("fifoq: payload exceeds frame capacity")

	// ErrWorkerCount indicates a pool was started with a non-positive
	// worker count
	ErrWorkerCount = errors.New("fifoq: worker count must be positive")

	// ErrFrameSize indicates a frame size outside the supported range
	ErrFrameSize = errors.New("fifoq: frame size out of range")

	// ErrDecode indicates a frame whose length prefix is inconsistent with
	// the channel's frame size
	ErrDecode = errors.New("fifoq: frame decode")

	// ErrClosed indicates an operation on a closed channel handle
	ErrClosed = errors.New("fifoq: channel closed")
)

// OpError represents an error from a queue operation
type OpError struct {
	// Op is the operation that failed
	Op Op
	// Path is the channel path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("fifoq %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// WorkerExitError records a worker process that terminated with a non-zero
// status. Task-level failures never produce one; only the process exit
// status counts.
type WorkerExitError struct {
	// PID is the worker's process ID
	PID int
	// Code is the process exit code, or -1 if the process was signalled
	Code int
}

// Error returns a formatted error message
func (e *WorkerExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("fifoq: worker %d killed by signal", e.PID)
	}
	return fmt.Sprintf("fifoq: worker %d exited with code %d", e.PID, e.Code)
}

// MultiError aggregates multiple errors from a pool's workers
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
