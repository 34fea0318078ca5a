package fifoq

import (
	"errors"
	"testing"
)

func TestOpString(t *testing.T) {
	cases := map[Op]string{
		OpCreate:    "create",
		OpOpen:      "open",
		OpEnqueue:   "enqueue",
		OpDequeue:   "dequeue",
		OpLock:      "lock",
		OpSpawn:     "spawn",
		OpWait:      "wait",
		OpTerminate: "terminate",
		OpRemove:    "remove",
		OpUnknown:   "unknown",
		Op(99):      "unknown",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("Op(%d).String() = %q, want %q", int(op), got, want)
		}
	}
}

func TestOpErrorUnwrap(t *testing.T) {
	err := &OpError{Op: OpEnqueue, Path: "/tmp/q", Err: ErrOversize}

	if !errors.Is(err, ErrOversize) {
		t.Errorf("errors.Is failed to find ErrOversize")
	}
	want := `fifoq enqueue "/tmp/q": fifoq: payload exceeds frame capacity`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWorkerExitError(t *testing.T) {
	exited := &WorkerExitError{PID: 42, Code: 3}
	if exited.Error() != "fifoq: worker 42 exited with code 3" {
		t.Errorf("Error() = %q", exited.Error())
	}

	signalled := &WorkerExitError{PID: 42, Code: -1}
	if signalled.Error() != "fifoq: worker 42 killed by signal" {
		t.Errorf("Error() = %q", signalled.Error())
	}
}

func TestMultiError(t *testing.T) {
	merr := &MultiError{}
	if merr.Err() != nil {
		t.Errorf("empty MultiError.Err() != nil")
	}

	merr.Add(nil)
	if merr.Err() != nil {
		t.Errorf("Add(nil) recorded an error")
	}

	merr.Add(ErrOversize)
	if merr.Err() == nil {
		t.Fatalf("Err() = nil after Add")
	}
	if merr.Error() != ErrOversize.Error() {
		t.Errorf("single error summary = %q", merr.Error())
	}

	merr.Add(&WorkerExitError{PID: 1, Code: 1})
	if merr.Error() != "2 errors occurred" {
		t.Errorf("multi error summary = %q", merr.Error())
	}
}
