//go:build linux

package notify

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// sizeofFanotifyEventMetadata is FAN_EVENT_METADATA_LEN from fanotify.h: the
// fixed size of one struct fanotify_event_metadata record (the struct has no
// trailing variable-length name, unlike inotify_event).
var sizeofFanotifyEventMetadata = int(unsafe.Sizeof(unix.FanotifyEventMetadata{}))

func (c FanotifyClass) initFlag() uint32 {
	switch c {
	case FanotifyClassContent:
		return unix.FAN_CLASS_CONTENT
	case FanotifyClassPreContent:
		return unix.FAN_CLASS_PRE_CONTENT
	default:
		return unix.FAN_CLASS_NOTIF
	}
}

// fanotifyBackend implements backend atop Linux fanotify. Unlike inotify,
// fanotify has no per-watch descriptor the kernel hands back — every event's
// identity comes from an open file descriptor on the affected file — so the
// watch table here is keyed by path itself (see watchtable.go's H type
// parameter) purely for WatchList/Unwatch bookkeeping, not for decoding
// incoming events.
type fanotifyBackend struct {
	*notifyBase

	fd         int
	fanFile    *os.File
	translator fanotifyTranslator
	watches    *watchTable[string]

	mountMu     sync.Mutex
	mountPoints map[string]struct{}
}

// newFanotifyBackend opens a fanotify instance in the given class. On
// kernels older than 3.15 (as reported by kernelAtLeast) the event-fd flags
// are O_RDONLY|0100000 instead of O_RDONLY|O_LARGEFILE.
func newFanotifyBackend(queueCapacity int, class FanotifyClass) (backend, error) {
	if rel, err := kernelRelease(); err == nil {
		debugf("fanotify", "kernel release %s, class %d", rel, class)
	}

	eventFlags := uint(unix.O_RDONLY | unix.O_LARGEFILE)
	if !kernelAtLeast(3, 15) {
		eventFlags = unix.O_RDONLY | 0100000
	}
	fd, err := unix.FanotifyInit(uint(class.initFlag())|unix.FAN_NONBLOCK, eventFlags)
	if err != nil {
		return nil, newBackendError("fanotify_init", "", err)
	}

	b := &fanotifyBackend{
		notifyBase:  newNotifyBase(queueCapacity),
		fd:          fd,
		fanFile:     os.NewFile(uintptr(fd), "fanotify"),
		watches:     newWatchTable[string](),
		mountPoints: make(map[string]struct{}),
	}
	go b.drain()
	return b, nil
}

func (b *fanotifyBackend) WatchFile(path string, mask Event) error {
	ok, err := b.CheckWatchFile(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.mark(path, unix.FAN_MARK_ADD, mask, false)
}

func (b *fanotifyBackend) WatchDirectory(path string, mask Event) error {
	ok, err := b.CheckWatchDirectory(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return b.mark(path, unix.FAN_MARK_ADD, mask, false)
}

func (b *fanotifyBackend) WatchMountPoint(path string, mask Event) error {
	if !hasCapSysAdmin() {
		return pkgerrors.Wrapf(ErrBackend, "watchMountPoint %s: requires CAP_SYS_ADMIN", path)
	}
	ok, err := b.CheckWatchDirectory(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := b.mark(path, unix.FAN_MARK_ADD|unix.FAN_MARK_MOUNT, mask, true); err != nil {
		return err
	}
	b.mountMu.Lock()
	b.mountPoints[path] = struct{}{}
	b.mountMu.Unlock()
	return nil
}

func (b *fanotifyBackend) mark(path string, flags uint, mask Event, isMount bool) error {
	if unsupportedMask(b.translator, mask) {
		return fmt.Errorf("%w: %s", ErrUnsupportedEvent, mask)
	}
	native := b.translator.ToNative(mask)

	if existing, ok := b.watches.byPathLookup(path); ok {
		native |= existing.native
	}

	if err := unix.FanotifyMark(b.fd, flags, uint64(native), unix.AT_FDCWD, path); err != nil {
		if err == unix.ENOSPC {
			return newKernelLimitError(fmt.Sprintf("%s watches held", humanize.Comma(int64(b.watches.len()))), err)
		}
		return newBackendError("fanotify_mark", path, err)
	}

	b.watches.add(&watchEntry[string]{handle: path, path: path, mask: mask, native: native})
	return nil
}

func (b *fanotifyBackend) Unwatch(path string) error {
	entry, ok := b.watches.removeByPath(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNonExistentWatch, path)
	}
	flags := uint(unix.FAN_MARK_REMOVE)
	b.mountMu.Lock()
	_, isMount := b.mountPoints[path]
	b.mountMu.Unlock()
	if isMount {
		flags |= unix.FAN_MARK_MOUNT
	}
	if err := unix.FanotifyMark(b.fd, flags, uint64(entry.native), unix.AT_FDCWD, path); err != nil {
		return newBackendError("fanotify_mark remove", path, err)
	}
	return nil
}

func (b *fanotifyBackend) WatchPathRecursively(path string, mask Event) error {
	return b.notifyBase.WatchPathRecursively(path, mask, b.WatchFile)
}

func (b *fanotifyBackend) WatchList() []string { return b.watches.paths() }

func (b *fanotifyBackend) NextEvent() (FileSystemEvent, bool) {
	return b.queue.pop(b.StopChan())
}

func (b *fanotifyBackend) Close() error {
	b.Stop()
	return b.fanFile.Close()
}

// drain polls for readability rather than blocking indefinitely in poll(2),
// bounding each wait to threadSleep so the stop flag is rechecked on the
// same cadence every backend uses.
func (b *fanotifyBackend) drain() {
	buf := make([]byte, 4096*sizeofFanotifyEventMetadata)
	for {
		if b.Stopped() {
			return
		}

		n, err := unix.Poll([]unix.PollFd{{Fd: int32(b.fd), Events: unix.POLLIN}}, int(b.threadSleep/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			b.setFatal(newBackendError("poll", "", err))
			return
		}
		if n == 0 {
			continue
		}

		read, err := unix.Read(b.fd, buf)
		if err != nil {
			if err == unix.EAGAIN {
				continue
			}
			b.setFatal(newBackendError("read", "", err))
			return
		}
		b.decode(buf[:read])
	}
}

func (b *fanotifyBackend) decode(raw []byte) {
	for len(raw) >= sizeofFanotifyEventMetadata {
		meta := (*unix.FanotifyEventMetadata)(unsafe.Pointer(&raw[0]))
		if int(meta.Event_len) < sizeofFanotifyEventMetadata || int(meta.Event_len) > len(raw) {
			break
		}
		next := raw[meta.Event_len:]

		fd := int(meta.Fd)
		if fd >= 0 {
			path, err := fanotifyPathFromFd(fd)
			unix.Close(fd)
			debugf("fanotify", "mask=%#x path=%s", meta.Mask, path)
			if err == nil && path != "" && !b.shouldDropEvent(path) {
				mask := uint32(meta.Mask)
				if mask&unix.FAN_Q_OVERFLOW != 0 {
					b.queue.push(FileSystemEvent{Flag: EventQueueOverflow})
				}
				for _, atom := range b.translator.FromNative(mask).Atoms() {
					b.queue.push(FileSystemEvent{Path: path, Flag: atom})
				}
			}
		}
		raw = next
	}
}

// fanotifyPathFromFd resolves the path of an event's reported fd through
// /proc/self/fd.
func fanotifyPathFromFd(fd int) (string, error) {
	link := fmt.Sprintf("/proc/self/fd/%d", fd)
	return os.Readlink(link)
}

// kernelRelease lazily memoizes the uname() release string on first use
// rather than resolving it in a package-level init().
var kernelRelease = sync.OnceValues(func() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	b := make([]byte, 0, len(uts.Release))
	for _, c := range uts.Release {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b), nil
})

// kernelAtLeast reports whether the running kernel's release is >= major.minor.
// This is a runtime check rather than a compile-time one since Go can't
// observe the build kernel's headers.
func kernelAtLeast(major, minor int) bool {
	rel, err := kernelRelease()
	if err != nil {
		return true // assume modern kernel if we can't tell
	}
	parts := strings.SplitN(rel, ".", 3)
	if len(parts) < 2 {
		return true
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return true
	}
	if maj != major {
		return maj > major
	}
	return min >= minor
}
