package notify

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Callback is invoked by the dispatch loop for each delivered Notification
// that matches a registered observer (or the unexpected-event fallback).
type Callback func(Notification)

// controllerState is the controller's lifecycle state machine: Idle →
// Configured → Running → Stopped (terminal).
type controllerState int32

const (
	stateIdle controllerState = iota
	stateConfigured
	stateRunning
	stateStopped
)

// Controller is the user-facing fluent surface over one backend adapter.
// It is designed to have Run/RunOnce invoked from one goroutine while Stop,
// Ignore*, and registration calls arrive from others; the observer map
// itself is read-only once Run has started — concurrent mutation of
// observers during Run is undefined behavior.
type Controller struct {
	b backend

	mu         sync.Mutex
	observers  map[Event]Callback
	unexpected Callback
	lastErr    error

	state atomic.Int32
}

func newController(b backend) *Controller {
	c := &Controller{b: b, observers: make(map[Event]Callback)}
	c.state.Store(int32(stateIdle))
	return c
}

// InotifyController constructs a Controller backed by Linux inotify.
func InotifyController() (*Controller, error) {
	b, err := newInotifyBackend(defaultQueueCapacity)
	if err != nil {
		return nil, err
	}
	return newController(b), nil
}

// FanotifyController constructs a Controller backed by Linux fanotify.
// class selects the notification class used for fanotify_init; pass
// FanotifyClassNotif unless permission-event semantics are needed.
func FanotifyController(class FanotifyClass) (*Controller, error) {
	b, err := newFanotifyBackend(defaultQueueCapacity, class)
	if err != nil {
		return nil, err
	}
	return newController(b), nil
}

// KqueueController constructs a Controller backed by BSD/Darwin kqueue.
func KqueueController() (*Controller, error) {
	b, err := newKqueueBackend(defaultQueueCapacity)
	if err != nil {
		return nil, err
	}
	return newController(b), nil
}

func (c *Controller) setErr(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	if c.lastErr == nil {
		c.lastErr = err
	}
	c.mu.Unlock()
}

// Err returns the first error recorded by a fluent call in this chain, or by
// Run/RunOnce's drain loop. Callers that need per-call errors should use the
// non-fluent *Raw variants below instead of chaining.
func (c *Controller) Err() error {
	c.mu.Lock()
	err := c.lastErr
	c.mu.Unlock()
	if err == nil {
		err = c.b.Err()
	}
	return err
}

func (c *Controller) transitionAtLeast(target controllerState) error {
	for {
		cur := controllerState(c.state.Load())
		if cur == stateStopped {
			return fmt.Errorf("%w: controller is stopped", ErrInvalidState)
		}
		if cur >= target {
			return nil
		}
		if c.state.CompareAndSwap(int32(cur), int32(target)) {
			return nil
		}
	}
}

// WatchFile registers path (non-recursively) for mask, fluently.
func (c *Controller) WatchFile(fse FileSystemEvent) *Controller {
	if err := c.transitionAtLeast(stateConfigured); err != nil {
		c.setErr(err)
		return c
	}
	c.setErr(c.b.WatchFile(fse.Path, fse.Flag))
	return c
}

// WatchFileRaw is the non-fluent equivalent of WatchFile, for callers that
// want the error from this specific call rather than the chain's first one.
func (c *Controller) WatchFileRaw(fse FileSystemEvent) error {
	if err := c.transitionAtLeast(stateConfigured); err != nil {
		return err
	}
	return c.b.WatchFile(fse.Path, fse.Flag)
}

// WatchDirectory registers path (non-recursively) for mask, fluently. Unlike
// WatchFile, path must be a directory.
func (c *Controller) WatchDirectory(fse FileSystemEvent) *Controller {
	if err := c.transitionAtLeast(stateConfigured); err != nil {
		c.setErr(err)
		return c
	}
	c.setErr(c.b.WatchDirectory(fse.Path, fse.Flag))
	return c
}

// WatchDirectoryRaw is the non-fluent equivalent of WatchDirectory.
func (c *Controller) WatchDirectoryRaw(path string, mask Event) error {
	if err := c.transitionAtLeast(stateConfigured); err != nil {
		return err
	}
	return c.b.WatchDirectory(path, mask)
}

// WatchPathRecursively walks fse.Path depth-first and installs a file watch
// for mask on every regular file beneath it.
func (c *Controller) WatchPathRecursively(fse FileSystemEvent) *Controller {
	if err := c.transitionAtLeast(stateConfigured); err != nil {
		c.setErr(err)
		return c
	}
	c.setErr(c.b.WatchPathRecursively(fse.Path, fse.Flag))
	return c
}

// WatchMountPoint marks an entire mount point (fanotify only); other
// backends return ErrUnsupportedOp.
func (c *Controller) WatchMountPoint(fse FileSystemEvent) *Controller {
	if err := c.transitionAtLeast(stateConfigured); err != nil {
		c.setErr(err)
		return c
	}
	c.setErr(c.b.WatchMountPoint(fse.Path, fse.Flag))
	return c
}

// Unwatch deregisters path.
func (c *Controller) Unwatch(path string) *Controller {
	if controllerState(c.state.Load()) == stateStopped {
		c.setErr(fmt.Errorf("%w: controller is stopped", ErrInvalidState))
		return c
	}
	c.setErr(c.b.Unwatch(path))
	return c
}

// Ignore adds path to the permanent ignore list.
func (c *Controller) Ignore(path string) *Controller {
	c.b.Ignore(path)
	return c
}

// IgnoreOnce adds path to the one-shot ignore list.
func (c *Controller) IgnoreOnce(path string) *Controller {
	c.b.IgnoreOnce(path)
	return c
}

// IgnoreGlob adds a doublestar glob pattern to the ignore filter.
func (c *Controller) IgnoreGlob(pattern string) *Controller {
	c.b.IgnoreGlob(pattern)
	return c
}

// OnEvent registers cb for mask, overwriting any previous registration for
// the exact same key.
func (c *Controller) OnEvent(mask Event, cb Callback) *Controller {
	c.mu.Lock()
	c.observers[mask] = cb
	c.mu.Unlock()
	return c
}

// OnEvents installs cb for every mask in masks.
func (c *Controller) OnEvents(masks []Event, cb Callback) *Controller {
	c.mu.Lock()
	for _, m := range masks {
		c.observers[m] = cb
	}
	c.mu.Unlock()
	return c
}

// OnUnexpectedEvent sets the fallback observer invoked when a delivered atom
// matches no registered key.
func (c *Controller) OnUnexpectedEvent(cb Callback) *Controller {
	c.mu.Lock()
	c.unexpected = cb
	c.mu.Unlock()
	return c
}

// WatchList returns every path currently registered with the backend.
func (c *Controller) WatchList() []string { return c.b.WatchList() }

// DebugWatches renders the current watch table, one line per entry.
func (c *Controller) DebugWatches() string {
	paths := c.b.WatchList()
	sort.Strings(paths)
	var out string
	for _, p := range paths {
		out += fmt.Sprintf("%s\n", p)
	}
	return out
}

// RunOnce pulls exactly one event from the backend and dispatches it to
// every matching observer. It returns nil when the controller was stopped
// while it waited (NextEvent returned ok=false with no backend error
// pending). Called on a controller that is already Stopped, it returns
// ErrInvalidState.
func (c *Controller) RunOnce() error {
	if err := c.transitionAtLeast(stateRunning); err != nil {
		return err
	}
	fse, ok := c.b.NextEvent()
	if !ok {
		return c.b.Err()
	}
	c.dispatch(notificationFrom(fse))
	return nil
}

// Run loops RunOnce until the controller is stopped or a fatal backend
// error occurs. An unhandled error inside the drain loop itself is fatal:
// stop is set and the error surfaces to the caller of Run.
func (c *Controller) Run() error {
	for {
		if controllerState(c.state.Load()) == stateStopped {
			return c.b.Err()
		}
		if err := c.RunOnce(); err != nil {
			if c.Stopped() {
				return c.b.Err()
			}
			return err
		}
		if c.b.Err() != nil && c.Stopped() {
			return c.b.Err()
		}
	}
}

// Stop propagates to the backend and marks the controller Stopped.
// Cooperative: the backend finishes delivering any event already in flight;
// events still queued after Stop are dropped.
func (c *Controller) Stop() *Controller {
	c.b.Stop()
	c.state.Store(int32(stateStopped))
	return c
}

// Stopped reports whether Stop has been called.
func (c *Controller) Stopped() bool { return controllerState(c.state.Load()) == stateStopped }

// Close releases the backend's native resources. Safe after Stop.
func (c *Controller) Close() error { return c.b.Close() }

// dispatch matches a delivered atom against every registered observer whose
// key intersects it (E & A == A), invoking matches in ascending
// canonical-Event order — this ordering is observable and must be stable.
// Each matched callback is invoked with Flag set to the observer's
// registered key, not the delivered atom, so a callback registered on Close
// sees Flag == Close even when the atom that triggered it was CloseWrite.
// The unexpected-event fallback is the one case that still receives the raw
// delivered atom, since it has no registered key to report instead.
// Panics inside a callback are recovered and routed to the unexpected-event
// observer rather than crashing the dispatch loop.
func (c *Controller) dispatch(n Notification) {
	c.mu.Lock()
	var matched []Event
	for key := range c.observers {
		if key.Has(n.Flag) {
			matched = append(matched, key)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
	unexpected := c.unexpected
	cbs := make([]Callback, len(matched))
	for i, key := range matched {
		cbs[i] = c.observers[key]
	}
	c.mu.Unlock()

	if len(matched) == 0 {
		c.invoke(unexpected, n)
		return
	}
	for i, cb := range cbs {
		c.invoke(cb, Notification{Path: n.Path, Flag: matched[i], ID: n.ID})
	}
}

func (c *Controller) invoke(cb Callback, n Notification) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			unexpected := c.unexpected
			c.mu.Unlock()
			if unexpected != nil {
				func() {
					defer func() { recover() }() // the fallback observer panicking too must not escape dispatch
					unexpected(n)
				}()
			}
		}
	}()
	cb(n)
}
