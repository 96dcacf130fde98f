//go:build !linux

package notify

import "fmt"

func newInotifyBackend(queueCapacity int) (backend, error) {
	return nil, fmt.Errorf("%w: inotify is Linux-only", ErrUnsupportedOp)
}

func newFanotifyBackend(queueCapacity int, class FanotifyClass) (backend, error) {
	return nil, fmt.Errorf("%w: fanotify is Linux-only", ErrUnsupportedOp)
}
