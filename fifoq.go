package fifoq

import (
	"io/fs"
	"time"
)

// Channel framing constants
const (
	// DefaultFrameSize is the on-wire frame size used when a channel is
	// created without an explicit size.
	DefaultFrameSize = 1024

	// MaxFrameSize is the hard ceiling on frame size. It equals PIPE_BUF,
	// the largest write the kernel guarantees will not be interleaved with
	// another writer's data on a pipe.
	MaxFrameSize = 4096

	// frameHeaderSize is the length prefix at the start of every frame.
	frameHeaderSize = 4

	// PoisonPill is the reserved payload that ends a worker's loop. It
	// starts with a NUL byte so it cannot collide with a shell command.
	PoisonPill = "\x00fifoq.stop"
)

// Channel file constants
const (
	// LockSuffix is appended to the channel path to name the advisory-lock
	// sidecar guarding the dequeue critical section.
	LockSuffix = ".lock"

	// MetaSuffix is appended to the channel path to name the metadata
	// sidecar recording the channel's frame size.
	MetaSuffix = ".meta"

	// ChannelMode is the permission mode for the FIFO and its sidecars.
	// Channels are owner-only.
	ChannelMode fs.FileMode = 0o600
)

// Pool constants
const (
	// DefaultWorkers is the worker count used when a pool is started
	// without an explicit count.
	DefaultWorkers = 4

	// WorkerChannelEnv is the environment variable that marks a spawned
	// process as a pool worker and names the channel it should drain.
	WorkerChannelEnv = "FIFOQ_WORKER_CHANNEL"
)

// Retry defaults for write-endpoint attachment and full-buffer backoff
const (
	// DefaultBackoffMin is the minimum delay between enqueue retries
	DefaultBackoffMin = 10 * time.Millisecond

	// DefaultBackoffMax is the maximum delay between enqueue retries
	DefaultBackoffMax = 1 * time.Second
)

// Op identifies a queue operation for error reporting
type Op int

const (
	// OpUnknown represents an unknown operation
	OpUnknown Op = iota
	// OpCreate creates a channel's backing FIFO
	OpCreate
	// OpOpen attaches to an existing channel
	OpOpen
	// OpEnqueue writes one frame
	OpEnqueue
	// OpDequeue reads one frame under the channel lock
	OpDequeue
	// OpLock acquires or releases the dequeue lock
	OpLock
	// OpSpawn starts worker processes
	OpSpawn
	// OpWait collects worker exit statuses
	OpWait
	// OpTerminate signals workers to stop
	OpTerminate
	// OpRemove deletes a channel's backing objects
	OpRemove
)

// Op string constants
const (
	opUnknownStr   = "unknown"
	opCreateStr    = "create"
	opOpenStr      = "open"
	opEnqueueStr   = "enqueue"
	opDequeueStr   = "dequeue"
	opLockStr      = "lock"
	opSpawnStr     = "spawn"
	opWaitStr      = "wait"
	opTerminateStr = "terminate"
	opRemoveStr    = "remove"
)

// String returns the string representation of an Op
func (op Op) String() string {
	switch op {
	case OpCreate:
		return opCreateStr
	case OpOpen:
		return opOpenStr
	case OpEnqueue:
		return opEnqueueStr
	case OpDequeue:
		return opDequeueStr
	case OpLock:
		return opLockStr
	case OpSpawn:
		return opSpawnStr
	case OpWait:
		return opWaitStr
	case OpTerminate:
		return opTerminateStr
	case OpRemove:
		return opRemoveStr
	default:
		return opUnknownStr
	}
}
