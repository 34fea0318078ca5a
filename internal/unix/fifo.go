//go:build linux || darwin

// Package unix provides the platform syscall surface for FIFO channels:
// named-pipe creation, advisory locking, and non-blocking open flags.
package unix

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// ONonblock is the non-blocking I/O open flag.
const ONonblock = unix.O_NONBLOCK

// Mkfifo creates a named pipe at path with the given permission bits.
func Mkfifo(path string, mode uint32) error {
	return unix.Mkfifo(path, mode)
}

// LockExclusive takes an exclusive advisory lock on f, blocking until the
// lock is available. The lock is scoped to the open file description, so
// independent processes holding their own descriptors contend correctly.
func LockExclusive(f *os.File) error {
	return flockRetry(int(f.Fd()), unix.LOCK_EX)
}

// Unlock releases an advisory lock held on f.
func Unlock(f *os.File) error {
	return flockRetry(int(f.Fd()), unix.LOCK_UN)
}

// flockRetry restarts flock when the call is interrupted by a signal.
func flockRetry(fd int, how int) error {
	for {
		err := unix.Flock(fd, how)
		if err != unix.EINTR {
			return err
		}
	}
}

// IsNoReader reports whether err wraps ENXIO, the error returned by a
// non-blocking open for write on a FIFO with no reader attached.
func IsNoReader(err error) bool {
	return errors.Is(err, unix.ENXIO)
}

// IsWouldBlock reports whether err wraps EAGAIN, returned by a non-blocking
// write when the pipe buffer is full.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN)
}

// IsInterrupted reports whether err wraps EINTR.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// IsBrokenPipe reports whether err wraps EPIPE, returned by a write after
// every reader has closed its endpoint.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE)
}

// IsExist reports whether err wraps EEXIST.
func IsExist(err error) bool {
	return errors.Is(err, unix.EEXIST)
}
