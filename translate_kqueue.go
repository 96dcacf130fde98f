//go:build freebsd || openbsd || netbsd || dragonfly || darwin

package notify

import "golang.org/x/sys/unix"

// kqueueTranslator implements the kqueue ("best-effort") side of the
// native-mask mapping. kqueue's EVFILT_VNODE fflags are coarser than the
// other two backends: several vocabulary atoms alias onto the same native
// bit. This lossy aliasing must be documented in-source:
//
//   - NOTE_WRITE is shared by Access and Modify. ToNative sets it for
//     either; FromNative always decodes it back as Modify, since kqueue
//     has no way to distinguish "read" from "write" traffic on a vnode —
//     Modify is the closer semantic match for a fired NOTE_WRITE.
//   - NOTE_RENAME is shared by MovedFrom, MovedTo, and MoveSelf. ToNative
//     sets it for any of the three; FromNative always decodes it back as
//     MoveSelf, because kqueue watches a single vnode directly rather than
//     a directory's children, so "this watched vnode was renamed" (MoveSelf)
//     is the only semantic that is actually true of the fd being watched.
//   - NOTE_DELETE is shared by DeleteSub and DeleteSelf. FromNative decodes
//     it as DeleteSelf for the same reason: kqueue reports deletion of the
//     watched vnode itself, not of an arbitrary child.
//
// Supported() reports every atom that has a non-zero ToNative mapping
// (matching the table's non-"—" cells), not just the subset that round-trips
// cleanly through FromNative — that asymmetry is the documented lossy
// behavior, and translate_kqueue_test.go only asserts the round-trip
// invariant for the atoms where it actually holds (Modify, Attrib, MoveSelf,
// DeleteSelf).
type kqueueTranslator struct{}

func (kqueueTranslator) ToNative(e Event) uint32 {
	var mask uint32
	if e.Has(Access) || e.Has(Modify) {
		mask |= unix.NOTE_WRITE
	}
	if e.Has(Attrib) {
		mask |= unix.NOTE_ATTRIB
	}
	if e.Has(MovedFrom) || e.Has(MovedTo) || e.Has(MoveSelf) {
		mask |= unix.NOTE_RENAME
	}
	if e.Has(DeleteSub) || e.Has(DeleteSelf) {
		mask |= unix.NOTE_DELETE
	}
	return mask
}

func (kqueueTranslator) FromNative(mask uint32) Event {
	var e Event
	if mask&unix.NOTE_WRITE != 0 {
		e |= Modify
	}
	if mask&unix.NOTE_ATTRIB != 0 {
		e |= Attrib
	}
	if mask&unix.NOTE_RENAME != 0 {
		e |= MoveSelf
	}
	if mask&unix.NOTE_DELETE != 0 {
		e |= DeleteSelf
	}
	return e
}

func (kqueueTranslator) Supported() Event {
	return Access | Modify | Attrib | MovedFrom | MovedTo | DeleteSub | DeleteSelf | MoveSelf
}
