//go:build freebsd || openbsd || netbsd || dragonfly || darwin

package notify

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// kqueueBackend implements backend atop BSD/Darwin kqueue. kqueue has no
// notion of watching a path directly — every watch is an open file
// descriptor registered against EVFILT_VNODE — so this backend opens and
// holds one fd per watched path and keys its watch table by that fd
// (watchtable.go's generic H parameter).
type kqueueBackend struct {
	*notifyBase

	kq         int
	translator kqueueTranslator
	watches    *watchTable[int]
}

func newKqueueBackend(queueCapacity int) (backend, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, newBackendError("kqueue", "", err)
	}
	b := &kqueueBackend{
		notifyBase: newNotifyBase(queueCapacity),
		kq:         kq,
		watches:    newWatchTable[int](),
	}
	go b.drain()
	return b, nil
}

func (b *kqueueBackend) WatchFile(path string, mask Event) error {
	ok, err := b.CheckWatchFile(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.add(path, mask)
}

func (b *kqueueBackend) WatchDirectory(path string, mask Event) error {
	ok, err := b.CheckWatchDirectory(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.add(path, mask)
}

func (b *kqueueBackend) WatchMountPoint(path string, mask Event) error {
	return fmt.Errorf("%w: kqueue has no mount-scope mark, use fanotify", ErrUnsupportedOp)
}

func (b *kqueueBackend) add(path string, mask Event) error {
	if unsupportedMask(b.translator, mask) {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, mask)
	}
	native := b.translator.ToNative(mask)

	if existing, ok := b.watches.byPathLookup(path); ok {
		existing.mask |= mask
		existing.native |= native
		return b.register(existing.handle, existing.native)
	}

	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return newBackendError("open", path, err)
	}
	if err := b.register(fd, native); err != nil {
		unix.Close(fd)
		return err
	}
	b.watches.add(&watchEntry[int]{handle: fd, path: path, mask: mask, native: native})
	return nil
}

// register uses unix.SetKevent, the portable constructor for Kevent_t —
// its Ident/Filter/Flags fields are differently sized per platform (e.g.
// uint32 on freebsd/386, uint64 elsewhere), so a direct struct literal
// would not compile everywhere this backend targets.
func (b *kqueueBackend) register(fd int, fflags uint32) error {
	changes := []unix.Kevent_t{{Fflags: fflags}}
	unix.SetKevent(&changes[0], fd, unix.EVFILT_VNODE, unix.EV_ADD|unix.EV_CLEAR)
	if _, err := unix.Kevent(b.kq, changes, nil, nil); err != nil {
		return newBackendError("kevent (register)", "", err)
	}
	return nil
}

func (b *kqueueBackend) Unwatch(path string) error {
	entry, ok := b.watches.removeByPath(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNonExistentWatch, path)
	}
	changes := []unix.Kevent_t{{}}
	unix.SetKevent(&changes[0], entry.handle, unix.EVFILT_VNODE, unix.EV_DELETE)
	unix.Kevent(b.kq, changes, nil, nil) // best-effort: fd close below is what actually matters
	return unix.Close(entry.handle)
}

func (b *kqueueBackend) WatchPathRecursively(path string, mask Event) error {
	return b.notifyBase.WatchPathRecursively(path, mask, b.WatchFile)
}

func (b *kqueueBackend) WatchList() []string { return b.watches.paths() }

func (b *kqueueBackend) NextEvent() (FileSystemEvent, bool) {
	return b.queue.pop(b.StopChan())
}

func (b *kqueueBackend) Close() error {
	b.Stop()
	for _, p := range b.watches.paths() {
		b.Unwatch(p)
	}
	return unix.Close(b.kq)
}

// drain polls kevent with a timeout equal to threadSleep, the same
// suspension-point cadence inotify and fanotify use, instead of blocking
// indefinitely.
func (b *kqueueBackend) drain() {
	events := make([]unix.Kevent_t, 16)
	timeout := unix.NsecToTimespec(b.threadSleep.Nanoseconds())
	for {
		if b.Stopped() {
			return
		}

		n, err := unix.Kevent(b.kq, nil, events, &timeout)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			b.setFatal(newBackendError("kevent (poll)", "", err))
			return
		}
		for _, kv := range events[:n] {
			b.handle(kv)
		}
	}
}

func (b *kqueueBackend) handle(kv unix.Kevent_t) {
	if kv.Flags&unix.EV_ERROR != 0 {
		// Fflags holds an errno, not a filter result, on an EV_ERROR kevent.
		return
	}
	fd := int(kv.Ident)
	entry, ok := b.watches.byHandleLookup(fd)
	if !ok {
		return
	}
	mask := uint32(kv.Fflags)
	debugf("kqueue", "fd=%d mask=%#x path=%s", fd, mask, entry.path)

	if b.shouldDropEvent(entry.path) {
		return
	}
	for _, atom := range b.translator.FromNative(mask).Atoms() {
		b.queue.push(FileSystemEvent{Path: entry.path, Flag: atom})
	}

	// kqueue invalidates the fd's vnode watch on delete/rename; the caller
	// gets DeleteSelf/MoveSelf above but must re-Watch a replacement path
	// themselves, since nothing here points at a successor.
	if mask&unix.NOTE_DELETE != 0 || mask&unix.NOTE_RENAME != 0 {
		b.watches.removeByHandle(fd)
		unix.Close(fd)
	}
}
