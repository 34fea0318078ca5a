//go:build linux || darwin

package fifoq

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"

	"github.com/axondata/go-fifoq/internal/unix"
)

// Channel is a frame-oriented task queue backed by a named pipe. One or
// more producers enqueue fixed-size frames; one or more consumers, in this
// or other processes, dequeue them under an advisory lock so every frame
// reaches exactly one consumer.
//
// A Channel value holds at most one write endpoint and one read endpoint;
// each cooperating process opens its own Channel for the same path.
type Channel struct {
	// Path is the filesystem path of the backing FIFO
	Path string

	// FrameSize is the exact on-wire size of every frame. Payload capacity
	// is FrameSize minus the length-prefix header.
	FrameSize int

	// BackoffMin is the minimum delay between enqueue attach/write retries
	BackoffMin time.Duration

	// BackoffMax is the maximum delay between enqueue attach/write retries
	BackoffMax time.Duration

	// owned records whether this process created the backing FIFO.
	// Only an owning channel is removed at pool teardown.
	owned bool

	// wmu serializes writers sharing this Channel value
	wmu sync.Mutex
	w   *os.File

	// rmu serializes in-process consumers; the flock sidecar excludes
	// consumers in other processes
	rmu  sync.Mutex
	r    *os.File
	lock *os.File
}

// Option configures a Channel at creation or attach time
type Option func(*Channel)

// WithFrameSize sets the on-wire frame size. It must be larger than the
// frame header and at most MaxFrameSize.
func WithFrameSize(n int) Option {
	return func(c *Channel) {
		c.FrameSize = n
	}
}

// WithBackoff sets the minimum and maximum enqueue retry delays
func WithBackoff(minBackoff, maxBackoff time.Duration) Option {
	return func(c *Channel) {
		c.BackoffMin = minBackoff
		c.BackoffMax = maxBackoff
	}
}

// Create makes a new channel at path with owner-only permissions. An empty
// path generates a unique name under the system temporary directory. If
// path already names a FIFO the existing channel is adopted instead and the
// returned Channel is not owned, so teardown leaves it intact.
//
// The frame size is recorded in a metadata sidecar next to the FIFO so
// processes attaching with Open agree on framing.
func Create(path string, opts ...Option) (*Channel, error) {
	c := newChannel(path, opts)
	if c.FrameSize <= frameHeaderSize || c.FrameSize > MaxFrameSize {
		return nil, &OpError{Op: OpCreate, Path: c.Path, Err: ErrFrameSize}
	}

	if c.Path == "" {
		if err := c.createUnique(); err != nil {
			return nil, err
		}
		return c, nil
	}

	err := unix.Mkfifo(c.Path, uint32(ChannelMode))
	if err == nil {
		c.owned = true
		if err := c.writeMeta(); err != nil {
			_ = os.Remove(c.Path)
			return nil, &OpError{Op: OpCreate, Path: c.Path, Err: err}
		}
		return c, nil
	}
	if !unix.IsExist(err) {
		return nil, &OpError{Op: OpCreate, Path: c.Path, Err: err}
	}

	// The path exists. A FIFO is usable as-is; anything else is fatal.
	info, serr := os.Stat(c.Path)
	if serr != nil {
		return nil, &OpError{Op: OpCreate, Path: c.Path, Err: serr}
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return nil, &OpError{Op: OpCreate, Path: c.Path, Err: ErrNotChannel}
	}
	c.owned = false
	c.loadMeta()
	return c, nil
}

// Open attaches to an existing channel at path. The returned Channel is
// never owned: pool teardown will not delete it. The frame size is taken
// from the metadata sidecar when present.
func Open(path string, opts ...Option) (*Channel, error) {
	c := newChannel(path, opts)
	if c.FrameSize <= frameHeaderSize || c.FrameSize > MaxFrameSize {
		return nil, &OpError{Op: OpOpen, Path: c.Path, Err: ErrFrameSize}
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return nil, &OpError{Op: OpOpen, Path: c.Path, Err: err}
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return nil, &OpError{Op: OpOpen, Path: c.Path, Err: ErrNotChannel}
	}
	c.loadMeta()
	return c, nil
}

func newChannel(path string, opts []Option) *Channel {
	c := &Channel{
		Path:       path,
		FrameSize:  DefaultFrameSize,
		BackoffMin: DefaultBackoffMin,
		BackoffMax: DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// createUnique generates a temp-dir path and retries on collision.
func (c *Channel) createUnique() error {
	for range 10000 {
		path := filepath.Join(os.TempDir(), fmt.Sprintf("fifoq-%d-%08x", os.Getpid(), rand.Uint32()))
		err := unix.Mkfifo(path, uint32(ChannelMode))
		if unix.IsExist(err) {
			continue
		}
		if err != nil {
			return &OpError{Op: OpCreate, Path: path, Err: err}
		}
		c.Path = path
		c.owned = true
		if err := c.writeMeta(); err != nil {
			_ = os.Remove(path)
			return &OpError{Op: OpCreate, Path: path, Err: err}
		}
		return nil
	}
	return &OpError{Op: OpCreate, Path: os.TempDir(), Err: os.ErrExist}
}

// Owned reports whether this process created the backing FIFO
func (c *Channel) Owned() bool {
	return c.owned
}

// MaxPayload returns the largest payload Enqueue accepts
func (c *Channel) MaxPayload() int {
	return maxPayload(c.FrameSize)
}

func (c *Channel) lockPath() string {
	return c.Path + LockSuffix
}

func (c *Channel) metaPath() string {
	return c.Path + MetaSuffix
}

// writeMeta records the frame size next to the FIFO. The write is atomic
// so an attaching process never observes a partial sidecar.
func (c *Channel) writeMeta() error {
	data := []byte(strconv.Itoa(c.FrameSize) + "\n")
	return renameio.WriteFile(c.metaPath(), data, ChannelMode)
}

// loadMeta adopts the frame size recorded by the channel's creator. A
// missing or malformed sidecar leaves the configured size in place.
func (c *Channel) loadMeta() {
	data, err := os.ReadFile(c.metaPath())
	if err != nil {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n <= frameHeaderSize || n > MaxFrameSize {
		return
	}
	c.FrameSize = n
}

// Enqueue encodes payload into one frame and writes it to the channel with
// a single write call, which the kernel guarantees is not interleaved with
// other producers' frames. It returns ErrOversize, with nothing written,
// when the payload exceeds MaxPayload.
//
// The call blocks, by retrying with backoff, while no consumer has opened
// the channel or while the pipe buffer is full; ctx cancels the wait.
func (c *Channel) Enqueue(ctx context.Context, payload []byte) error {
	frame, err := encodeFrame(payload, c.FrameSize)
	if err != nil {
		return &OpError{Op: OpEnqueue, Path: c.Path, Err: err}
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	backoff := c.BackoffMin
	for {
		if err := c.openWriter(ctx); err != nil {
			return &OpError{Op: OpEnqueue, Path: c.Path, Err: err}
		}

		_, werr := c.w.Write(frame)
		if werr == nil {
			return nil
		}
		if unix.IsBrokenPipe(werr) {
			// Every reader has gone away since we attached. Drop the
			// endpoint and wait for a new reader.
			_ = c.w.Close()
			c.w = nil
		} else if !unix.IsWouldBlock(werr) {
			return &OpError{Op: OpEnqueue, Path: c.Path, Err: werr}
		}

		select {
		case <-ctx.Done():
			return &OpError{Op: OpEnqueue, Path: c.Path, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.BackoffMax {
			backoff = c.BackoffMax
		}
	}
}

// EnqueuePill enqueues one poison pill. Draining a pool cleanly requires
// exactly one pill per worker.
func (c *Channel) EnqueuePill(ctx context.Context) error {
	return c.Enqueue(ctx, []byte(PoisonPill))
}

// openWriter attaches the write endpoint. Opening a FIFO for writing with
// no reader fails with ENXIO rather than blocking, so attachment retries
// with backoff until a reader appears or ctx is done. The caller holds wmu.
func (c *Channel) openWriter(ctx context.Context) error {
	if c.w != nil {
		return nil
	}

	backoff := c.BackoffMin
	for {
		f, err := os.OpenFile(c.Path, os.O_WRONLY|unix.ONonblock, 0)
		if err == nil {
			c.w = f
			return nil
		}
		if !unix.IsNoReader(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.BackoffMax {
			backoff = c.BackoffMax
		}
	}
}

// Dequeue reads exactly one frame under the channel's advisory lock and
// returns its payload. The lock is what makes independent consumer
// processes safe: without it two readers could each take half a frame.
// It is held only for the duration of one frame read.
//
// Dequeue blocks until a frame is available. An end-of-stream or short
// read is returned as an OpError; the next call reattaches the read
// endpoint, blocking until a writer opens the channel again.
func (c *Channel) Dequeue(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, &OpError{Op: OpDequeue, Path: c.Path, Err: ctx.Err()}
	default:
	}

	c.rmu.Lock()
	defer c.rmu.Unlock()

	if c.lock == nil {
		f, err := os.OpenFile(c.lockPath(), os.O_CREATE|os.O_RDWR, ChannelMode)
		if err != nil {
			return nil, &OpError{Op: OpLock, Path: c.Path, Err: err}
		}
		c.lock = f
	}

	if err := unix.LockExclusive(c.lock); err != nil {
		return nil, &OpError{Op: OpLock, Path: c.Path, Err: err}
	}
	defer func() { _ = unix.Unlock(c.lock) }()

	if c.r == nil {
		// Blocks until some process holds a write endpoint.
		f, err := os.OpenFile(c.Path, os.O_RDONLY, 0)
		if err != nil {
			return nil, &OpError{Op: OpDequeue, Path: c.Path, Err: err}
		}
		c.r = f
	}

	frame := make([]byte, c.FrameSize)
	if _, err := io.ReadFull(c.r, frame); err != nil {
		// End of stream or an interrupted read. Drop the endpoint so the
		// next attempt blocks in open until a writer returns.
		_ = c.r.Close()
		c.r = nil
		return nil, &OpError{Op: OpDequeue, Path: c.Path, Err: err}
	}

	payload, err := decodeFrame(frame)
	if err != nil {
		return nil, &OpError{Op: OpDequeue, Path: c.Path, Err: err}
	}
	return payload, nil
}

// Close releases the channel's open endpoints. The backing FIFO is left in
// place; use Remove to delete it.
func (c *Channel) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.rmu.Lock()
	defer c.rmu.Unlock()

	merr := &MultiError{}
	for _, f := range []**os.File{&c.w, &c.r, &c.lock} {
		if *f != nil {
			merr.Add((*f).Close())
			*f = nil
		}
	}
	return merr.Err()
}

// Remove deletes the backing FIFO and its sidecars. Pools call this at
// teardown only for channels they own; callers managing a channel by hand
// are responsible for the same discipline.
func (c *Channel) Remove() error {
	merr := &MultiError{}
	for _, p := range []string{c.Path, c.lockPath(), c.metaPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			merr.Add(&OpError{Op: OpRemove, Path: p, Err: err})
		}
	}
	return merr.Err()
}
