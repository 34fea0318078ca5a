//go:build linux || darwin

package fifoq

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitChannel blocks until a channel exists at path, for attaching to a
// queue that another process is still creating. It returns ErrNotChannel
// if the path appears as something other than a FIFO, and ctx.Err() if the
// context is done first.
func WaitChannel(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &OpError{Op: OpOpen, Path: path, Err: err}
	}

	if ok, err := statChannel(abs); err != nil || ok {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &OpError{Op: OpOpen, Path: abs, Err: err}
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return &OpError{Op: OpOpen, Path: abs, Err: err}
	}

	// The channel may have appeared between the first stat and the watch.
	if ok, err := statChannel(abs); err != nil || ok {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return &OpError{Op: OpOpen, Path: abs, Err: os.ErrClosed}
			}
			if event.Name != abs {
				continue
			}
			if found, err := statChannel(abs); err != nil || found {
				return err
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				return &OpError{Op: OpOpen, Path: abs, Err: os.ErrClosed}
			}
			if werr != nil {
				return &OpError{Op: OpOpen, Path: abs, Err: werr}
			}
		}
	}
}

// statChannel reports whether path currently names a FIFO. A missing path
// is not an error; a path of the wrong type is.
func statChannel(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &OpError{Op: OpOpen, Path: path, Err: err}
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return false, &OpError{Op: OpOpen, Path: path, Err: ErrNotChannel}
	}
	return true, nil
}
