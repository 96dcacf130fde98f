package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend is a minimal in-memory backend double used to exercise
// Controller's dispatch and lifecycle logic without touching any kernel
// facility.
type fakeBackend struct {
	*notifyBase
	watched []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{notifyBase: newNotifyBase(16)}
}

func (f *fakeBackend) WatchFile(path string, mask Event) error {
	f.watched = append(f.watched, path)
	return nil
}
func (f *fakeBackend) WatchDirectory(path string, mask Event) error { return f.WatchFile(path, mask) }
func (f *fakeBackend) WatchMountPoint(path string, mask Event) error {
	return errors.New("fake: not supported")
}
func (f *fakeBackend) Unwatch(path string) error {
	for i, p := range f.watched {
		if p == path {
			f.watched = append(f.watched[:i], f.watched[i+1:]...)
			return nil
		}
	}
	return ErrNonExistentWatch
}
func (f *fakeBackend) WatchPathRecursively(path string, mask Event) error {
	return f.WatchFile(path, mask)
}
func (f *fakeBackend) WatchList() []string                { return f.watched }
func (f *fakeBackend) NextEvent() (FileSystemEvent, bool) { return f.queue.pop(f.StopChan()) }
func (f *fakeBackend) Close() error                       { f.Stop(); return nil }
func (f *fakeBackend) emit(fse FileSystemEvent)           { f.queue.push(fse) }

func TestControllerDispatchMatchesComposite(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)

	var mu sync.Mutex
	var got []Notification
	c.OnEvent(Close, func(n Notification) {
		mu.Lock()
		got = append(got, n)
		mu.Unlock()
	})

	fb.emit(FileSystemEvent{Path: "/a", Flag: CloseWrite})
	require.NoError(t, c.RunOnce())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "/a", got[0].Path)
	assert.Equal(t, Close, got[0].Flag, "callback must see the registered key, not the delivered atom")
}

func TestControllerDispatchOrderIsAscending(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)

	var order []Event
	c.OnEvent(Access|Modify, func(n Notification) { order = append(order, n.Flag) })
	c.OnEvent(Access, func(n Notification) { order = append(order, n.Flag) })

	c.dispatch(notificationFrom(FileSystemEvent{Path: "/a", Flag: Access}))

	require.Len(t, order, 2)
	assert.Equal(t, []Event{Access, Access | Modify}, order, "dispatch visits observer keys in ascending Event order")
}

func TestControllerUnexpectedFallback(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)

	var fellThrough bool
	c.OnUnexpectedEvent(func(n Notification) { fellThrough = true })
	c.OnEvent(Create, func(n Notification) { t.Fatal("should not match") })

	fb.emit(FileSystemEvent{Path: "/a", Flag: Modify})
	require.NoError(t, c.RunOnce())
	assert.True(t, fellThrough)
}

func TestControllerPanicRecoveredRoutesToUnexpected(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)

	var recovered bool
	c.OnEvent(Create, func(n Notification) { panic("boom") })
	c.OnUnexpectedEvent(func(n Notification) { recovered = true })

	fb.emit(FileSystemEvent{Path: "/a", Flag: Create})
	require.NoError(t, c.RunOnce())
	assert.True(t, recovered)
}

func TestControllerStopEndsRun(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)
	c.OnEvent(All, func(n Notification) {})

	done := make(chan error, 1)
	go func() { done <- c.Run() }()
	c.Stop()

	err := <-done
	assert.NoError(t, err)
	assert.True(t, c.Stopped())
}

func TestControllerWatchFileChains(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)
	fse, err := NewFileSystemEvent("/tmp/x", Create)
	require.NoError(t, err)

	c.WatchFile(fse).WatchFile(fse)
	require.NoError(t, c.Err())
	assert.Equal(t, []string{"/tmp/x", "/tmp/x"}, c.WatchList())
}

func TestControllerUnwatchUnknownPathSetsErr(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)
	c.Unwatch("/never/watched")
	assert.ErrorIs(t, c.Err(), ErrNonExistentWatch)
}

func TestControllerRunOnceAfterStoppedReturnsBackendErr(t *testing.T) {
	fb := newFakeBackend()
	c := newController(fb)
	fb.setFatal(ErrBackend)

	err := c.RunOnce()
	assert.ErrorIs(t, err, ErrBackend)
}
