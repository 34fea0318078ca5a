//go:build linux || darwin

package fifoq

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"vawter.tech/stopper"

	"github.com/axondata/go-fifoq/internal/unix"
)

// TeardownGrace is how long pool teardown waits for its collector
// goroutines after the last worker has exited.
const TeardownGrace = 100 * time.Millisecond

// Pool supervises a set of worker processes draining one channel. It keeps
// a guard write endpoint open for its whole lifetime so workers never
// observe end-of-stream merely because producers momentarily have no write
// endpoint of their own.
type Pool struct {
	ch      *Channel
	workers int
	guard   *os.File
	cmds    []*exec.Cmd
	sctx    *stopper.Context

	wg sync.WaitGroup

	mu          sync.Mutex
	exits       *MultiError
	teardown    *MultiError
	terminating bool

	stopOnce sync.Once
}

// PoolOption configures a Pool before it starts
type PoolOption func(*poolConfig)

type poolConfig struct {
	workers int
	argv    []string
}

// WithWorkers sets the number of worker processes to spawn
func WithWorkers(n int) PoolOption {
	return func(p *poolConfig) {
		p.workers = n
	}
}

// WithWorkerCommand sets the argv used to spawn each worker. The spawned
// program receives the channel path in the worker environment variable and
// is expected to run the dequeue-execute loop, normally by calling
// MaybeWorker early in main. The default re-executes the current binary.
func WithWorkerCommand(argv ...string) PoolOption {
	return func(p *poolConfig) {
		p.argv = argv
	}
}

// StartPool spawns worker processes against ch and returns a handle for
// waiting on them. Setup is all-or-nothing: an invalid worker count, a
// path that is no longer a FIFO, or a failed spawn aborts with every
// already-started worker killed and no pool left behind.
//
// Workers are spawned before the guard write endpoint is opened, since
// opening a FIFO for writing needs a reader on the other side.
func StartPool(ctx context.Context, ch *Channel, opts ...PoolOption) (*Pool, error) {
	cfg := &poolConfig{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workers <= 0 {
		return nil, &OpError{Op: OpSpawn, Path: ch.Path, Err: ErrWorkerCount}
	}

	info, err := os.Stat(ch.Path)
	if err != nil {
		return nil, &OpError{Op: OpSpawn, Path: ch.Path, Err: err}
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return nil, &OpError{Op: OpSpawn, Path: ch.Path, Err: ErrNotChannel}
	}

	argv := cfg.argv
	if len(argv) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, &OpError{Op: OpSpawn, Path: ch.Path, Err: err}
		}
		argv = []string{exe}
	}

	p := &Pool{
		ch:       ch,
		workers:  cfg.workers,
		exits:    &MultiError{},
		teardown: &MultiError{},
	}

	for i := 0; i < cfg.workers; i++ {
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Env = append(os.Environ(), WorkerChannelEnv+"="+ch.Path)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			p.killStarted()
			return nil, &OpError{Op: OpSpawn, Path: ch.Path, Err: err}
		}
		p.cmds = append(p.cmds, cmd)
	}

	guard, err := p.openGuard(ctx)
	if err != nil {
		p.killStarted()
		return nil, &OpError{Op: OpSpawn, Path: ch.Path, Err: err}
	}
	p.guard = guard

	p.sctx = stopper.WithContext(ctx)
	p.sctx.Defer(func() {
		_ = p.guard.Close()
		if p.ch.Owned() {
			p.mu.Lock()
			p.teardown.Add(p.ch.Remove())
			p.mu.Unlock()
		}
	})

	for _, cmd := range p.cmds {
		p.wg.Add(1)
		p.sctx.Go(func(_ *stopper.Context) error {
			defer p.wg.Done()
			p.collect(cmd)
			return nil
		})
	}

	return p, nil
}

// openGuard attaches the pool's write endpoint, retrying until one of the
// freshly spawned workers has the read side open.
func (p *Pool) openGuard(ctx context.Context) (*os.File, error) {
	backoff := p.ch.BackoffMin
	for {
		f, err := os.OpenFile(p.ch.Path, os.O_WRONLY|unix.ONonblock, 0)
		if err == nil {
			return f, nil
		}
		if !unix.IsNoReader(err) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > p.ch.BackoffMax {
			backoff = p.ch.BackoffMax
		}
	}
}

// killStarted reaps workers spawned before a setup failure
func (p *Pool) killStarted() {
	for _, cmd := range p.cmds {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}
}

// collect records one worker's exit status. Exits forced by Terminate are
// expected and not recorded as failures.
func (p *Pool) collect(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminating {
		return
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		p.exits.Add(&WorkerExitError{PID: cmd.Process.Pid, Code: ee.ExitCode()})
		return
	}
	p.exits.Add(&OpError{Op: OpWait, Path: p.ch.Path, Err: err})
}

// Wait blocks until every worker has exited, then tears the pool down and
// reports the aggregate outcome: nil iff every worker exited 0. A single
// failing worker never causes its siblings to be signalled.
//
// Workers exit when they execute a poison pill; Drain enqueues the right
// number. Without pills, Wait blocks indefinitely.
func (p *Pool) Wait() error {
	p.wg.Wait()
	p.shutdown()

	p.mu.Lock()
	defer p.mu.Unlock()
	merr := &MultiError{}
	merr.Errors = append(merr.Errors, p.exits.Errors...)
	merr.Errors = append(merr.Errors, p.teardown.Errors...)
	return merr.Err()
}

// Terminate sends SIGTERM to every tracked worker, waits for them to go
// away, and tears the pool down. Forced exits are not reported as worker
// failures; only signalling and teardown problems are returned.
func (p *Pool) Terminate() error {
	p.mu.Lock()
	p.terminating = true
	p.mu.Unlock()

	sigErrs := &MultiError{}
	for _, cmd := range p.cmds {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			sigErrs.Add(&OpError{Op: OpTerminate, Path: p.ch.Path, Err: err})
		}
	}

	p.wg.Wait()
	p.shutdown()

	p.mu.Lock()
	defer p.mu.Unlock()
	sigErrs.Errors = append(sigErrs.Errors, p.teardown.Errors...)
	return sigErrs.Err()
}

// shutdown runs teardown exactly once: the stopper context stops, its
// deferred cleanup closes the guard endpoint and removes the channel if
// this pool owns it.
func (p *Pool) shutdown() {
	p.stopOnce.Do(func() {
		p.sctx.Stop(TeardownGrace)
		_ = p.sctx.Wait()
	})
}

// Drain enqueues exactly one poison pill per worker, the number needed for
// a clean drain. Call Wait afterwards to collect the workers.
func (p *Pool) Drain(ctx context.Context) error {
	for i := 0; i < p.workers; i++ {
		if err := p.ch.EnqueuePill(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Workers returns the number of worker processes the pool spawned
func (p *Pool) Workers() int {
	return p.workers
}

// PIDs returns the process IDs of the tracked workers
func (p *Pool) PIDs() []int {
	pids := make([]int, 0, len(p.cmds))
	for _, cmd := range p.cmds {
		pids = append(pids, cmd.Process.Pid)
	}
	return pids
}

// Channel returns the channel the pool's workers are draining
func (p *Pool) Channel() *Channel {
	return p.ch
}
