//go:build linux || darwin

package fifoq

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
)

// ExecFunc runs one decoded unit of work. A non-nil error marks the task
// as failed; it never stops the worker loop.
type ExecFunc func(ctx context.Context, payload []byte) error

// WorkerOption configures a worker loop
type WorkerOption func(*workerConfig)

type workerConfig struct {
	exec ExecFunc
	log  *log.Logger
}

// WithExec sets the function that executes dequeued payloads. The default
// is ShellExec.
func WithExec(fn ExecFunc) WorkerOption {
	return func(w *workerConfig) {
		w.exec = fn
	}
}

// WithLogger sets the destination for worker diagnostics. The default
// logger writes to stderr, keeping diagnostics apart from task output.
func WithLogger(l *log.Logger) WorkerOption {
	return func(w *workerConfig) {
		w.log = l
	}
}

// ShellExec runs a payload as a shell command line. The command inherits
// the worker's stdout and stderr.
func ShellExec(ctx context.Context, payload []byte) error {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", string(payload))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Work runs the dequeue-execute loop against ch until a poison pill is
// dequeued, returning nil, or ctx is cancelled, returning ctx.Err().
//
// Each iteration takes the channel's dequeue lock for exactly one frame
// read. Transient dequeue failures are logged and retried, never
// escalated, and a failed task does not end the loop; only the pill does.
func Work(ctx context.Context, ch *Channel, opts ...WorkerOption) error {
	cfg := &workerConfig{
		exec: ShellExec,
		log:  log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	for {
		payload, err := ch.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, os.ErrClosed) {
				cfg.log.Printf("fifoq: dequeue retry: %v", err)
			}
			continue
		}

		if isPill(payload) {
			return nil
		}

		if err := cfg.exec(ctx, payload); err != nil {
			cfg.log.Printf("fifoq: task failed: %v", err)
		}
	}
}

// MaybeWorker turns the current process into a pool worker when it was
// spawned by a Pool, and otherwise returns immediately. Programs that
// start pools with the default self-exec worker command must call it at
// the top of main, before any other work:
//
//	func main() {
//		fifoq.MaybeWorker()
//		// normal program start
//	}
//
// When the worker environment variable is set the function never returns:
// it drains the named channel and exits 0 after the poison pill, or 111
// if the channel cannot be opened.
func MaybeWorker(opts ...WorkerOption) {
	path := os.Getenv(WorkerChannelEnv)
	if path == "" {
		return
	}

	ch, err := Open(path)
	if err != nil {
		log.Printf("fifoq: worker cannot open channel: %v", err)
		os.Exit(111)
	}

	if err := Work(context.Background(), ch, opts...); err != nil {
		log.Printf("fifoq: worker stopped: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}
