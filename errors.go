package notify

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for this package's error taxonomy. Compare with
// errors.Is; all wrapping in this package uses fmt.Errorf("%w: ...", Err...)
// or, for errors that cross a syscall boundary, pkgerrors.Wrapf to retain a
// stack.
var (
	// ErrPathMissing: watching a path that does not exist.
	ErrPathMissing = errors.New("notify: path does not exist")
	// ErrNotAFile: watch_file called on something other than a regular file.
	ErrNotAFile = errors.New("notify: not a regular file")
	// ErrNotADirectory: watch_directory called on something other than a directory.
	ErrNotADirectory = errors.New("notify: not a directory")
	// ErrKernelLimit: e.g. ENOSPC from inotify_add_watch.
	ErrKernelLimit = errors.New("notify: kernel watch limit reached")
	// ErrUnsupportedEvent: the requested mask contains only atoms the backend cannot express.
	ErrUnsupportedEvent = errors.New("notify: none of the requested events are supported by this backend")
	// ErrBackend: any other native failure.
	ErrBackend = errors.New("notify: backend error")
	// ErrInvalidState: operating on a stopped controller.
	ErrInvalidState = errors.New("notify: invalid controller state")
	// ErrNonExistentWatch: unwatch called for a path that was never registered.
	ErrNonExistentWatch = errors.New("notify: no such watch")
	// ErrUnsupportedOp: the backend does not implement the requested operation at all (e.g. WatchMountPoint on inotify/kqueue).
	ErrUnsupportedOp = errors.New("notify: operation not supported by this backend")
	// ErrClosed: the controller or backend has already been stopped/closed.
	ErrClosed = errors.New("notify: already closed")
)

// kernelLimitError wraps a syscall-level resource exhaustion with an
// actionable hint, letting callers report how many watches are currently
// held against the limit.
type kernelLimitError struct {
	hint string
	err  error
}

func newKernelLimitError(hint string, cause error) error {
	return &kernelLimitError{hint: hint, err: pkgerrors.Wrapf(cause, "%s: %s", ErrKernelLimit, hint)}
}

func (e *kernelLimitError) Error() string { return e.err.Error() }
func (e *kernelLimitError) Unwrap() error { return ErrKernelLimit }
func (e *kernelLimitError) Cause() error  { return e.err }

// newBackendError wraps any other native failure, preserving the
// errno/message and a stack trace at the point the syscall failed.
func newBackendError(op, path string, cause error) error {
	return pkgerrors.Wrapf(fmt.Errorf("%w: %s %s: %v", ErrBackend, op, path, cause), "notify")
}

// wrapf wraps sentinel with a formatted message, keeping sentinel reachable
// via errors.Is/errors.Unwrap.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
