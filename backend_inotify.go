//go:build linux

package notify

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// inotifyBackend implements backend atop Linux inotify. It uses a
// non-blocking fd drained by a dedicated goroutine on a bounded sleep/read
// cadence rather than a blocking os.File.Read, so stop is observed within
// one threadSleep tick regardless of whether the kernel has anything to
// report.
type inotifyBackend struct {
	*notifyBase

	fd          int
	inotifyFile *os.File
	translator  inotifyTranslator
	watches     *watchTable[uint32]

	// moveCookies correlates an IN_MOVED_FROM with its paired IN_MOVED_TO so
	// a directly-watched path that gets renamed in place keeps its
	// bookkeeping entry pointed at the new name. Only ever touched from the
	// single drain goroutine, so it needs no lock of its own.
	moveCookies map[uint32]string
}

func newInotifyBackend(queueCapacity int) (backend, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, newBackendError("inotify_init1", "", err)
	}

	b := &inotifyBackend{
		notifyBase:  newNotifyBase(queueCapacity),
		fd:          fd,
		inotifyFile: os.NewFile(uintptr(fd), "inotify"),
		watches:     newWatchTable[uint32](),
		moveCookies: make(map[uint32]string),
	}
	go b.drain()
	return b, nil
}

func (b *inotifyBackend) WatchFile(path string, mask Event) error {
	ok, err := b.CheckWatchFile(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.add(path, mask)
}

func (b *inotifyBackend) WatchDirectory(path string, mask Event) error {
	ok, err := b.CheckWatchDirectory(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.add(path, mask)
}

func (b *inotifyBackend) WatchMountPoint(path string, mask Event) error {
	return fmt.Errorf("%w: inotify has no mount-scope mark, use fanotify", ErrUnsupportedOp)
}

// add registers or re-registers path. Per inotify(7), adding a path that's
// already watched ORs the new mask into the existing one (IN_MASK_ADD)
// rather than replacing it.
func (b *inotifyBackend) add(path string, mask Event) error {
	if unsupportedMask(b.translator, mask) {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, mask)
	}
	native := b.translator.ToNative(mask)

	flags := native
	if _, ok := b.watches.byPathLookup(path); ok {
		flags |= unix.IN_MASK_ADD
	}

	wd, err := unix.InotifyAddWatch(b.fd, path, flags)
	if err != nil {
		if err == unix.ENOSPC {
			return newKernelLimitError(fmt.Sprintf("%s watches held (fs.inotify.max_user_watches)", humanize.Comma(int64(b.watches.len()))), err)
		}
		return newBackendError("inotify_add_watch", path, err)
	}

	if existing, ok := b.watches.byPathLookup(path); ok {
		existing.mask |= mask
		existing.native |= native
	} else {
		b.watches.add(&watchEntry[uint32]{handle: uint32(wd), path: path, mask: mask, native: native})
	}
	return nil
}

func (b *inotifyBackend) Unwatch(path string) error {
	entry, ok := b.watches.removeByPath(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNonExistentWatch, path)
	}
	if _, err := unix.InotifyRmWatch(b.fd, entry.handle); err != nil && err != unix.EINVAL {
		return newBackendError("inotify_rm_watch", path, err)
	}
	return nil
}

func (b *inotifyBackend) WatchPathRecursively(path string, mask Event) error {
	return b.notifyBase.WatchPathRecursively(path, mask, b.WatchFile)
}

func (b *inotifyBackend) WatchList() []string { return b.watches.paths() }

func (b *inotifyBackend) NextEvent() (FileSystemEvent, bool) {
	return b.queue.pop(b.StopChan())
}

func (b *inotifyBackend) Close() error {
	b.Stop()
	return b.inotifyFile.Close()
}

// drain reads raw inotify_event structs in a loop bounded by threadSleep, so
// Stop is always observed within one tick even with no kernel activity,
// instead of blocking indefinitely on an eventfd-style wakeup.
func (b *inotifyBackend) drain() {
	var buf [unix.SizeofInotifyEvent * 4096]byte
	for {
		if b.Stopped() {
			return
		}

		n, err := unix.Read(b.fd, buf[:])
		if err != nil {
			if err == unix.EAGAIN {
				time.Sleep(b.threadSleep)
				continue
			}
			if err == unix.EBADF {
				return // fd closed under us by Close()
			}
			b.setFatal(newBackendError("read", "", err))
			return
		}
		if n < unix.SizeofInotifyEvent {
			continue
		}
		b.decode(buf[:n])
	}
}

func (b *inotifyBackend) decode(raw []byte) {
	var offset uint32
	for offset <= uint32(len(raw))-unix.SizeofInotifyEvent {
		ev := (*unix.InotifyEvent)(unsafe.Pointer(&raw[offset]))
		mask := uint32(ev.Mask)
		nameLen := uint32(ev.Len)
		next := offset + unix.SizeofInotifyEvent + nameLen

		entry, _ := b.watches.byHandleLookup(uint32(ev.Wd))
		path := ""
		if entry != nil {
			path = entry.path
		}
		if nameLen > 0 {
			nameBytes := raw[offset+unix.SizeofInotifyEvent : offset+unix.SizeofInotifyEvent+nameLen]
			name := nullTerminatedString(nameBytes)
			path = filepath.Join(path, name)
		}

		debugf("inotify", "wd=%d mask=%#x path=%s", ev.Wd, mask, path)

		if mask&unix.IN_Q_OVERFLOW != 0 {
			b.queue.push(FileSystemEvent{Flag: EventQueueOverflow})
		}

		if entry != nil && mask&unix.IN_DELETE_SELF != 0 {
			b.watches.removeByHandle(entry.handle)
		}

		// A renamed child of a watched directory arrives as a MOVED_FROM/
		// MOVED_TO pair sharing a cookie. If the old full path was itself a
		// directly-watched entry, retarget its bookkeeping to the new path
		// rather than leaving it to point at a name that no longer exists.
		if ev.Cookie != 0 {
			switch {
			case mask&unix.IN_MOVED_FROM != 0:
				b.moveCookies[ev.Cookie] = path
			case mask&unix.IN_MOVED_TO != 0:
				if oldPath, ok := b.moveCookies[ev.Cookie]; ok {
					b.watches.renamePath(oldPath, path)
					delete(b.moveCookies, ev.Cookie)
				}
			}
		}

		if path != "" && !b.shouldDropEvent(path) {
			for _, atom := range b.translator.FromNative(mask).Atoms() {
				b.queue.push(FileSystemEvent{Path: path, Flag: atom})
			}
		}

		offset = next
	}
}

func nullTerminatedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
