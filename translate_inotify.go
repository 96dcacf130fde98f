//go:build linux

package notify

import "golang.org/x/sys/unix"

// inotifyTranslator implements the inotify side of the native-mask mapping.
// inotify is the only backend that can express all twelve atoms distinctly,
// so every atom round-trips through ToNative/FromNative.
type inotifyTranslator struct{}

func (inotifyTranslator) ToNative(e Event) uint32 {
	var mask uint32
	if e.Has(Access) {
		mask |= unix.IN_ACCESS
	}
	if e.Has(Modify) {
		mask |= unix.IN_MODIFY
	}
	if e.Has(Attrib) {
		mask |= unix.IN_ATTRIB
	}
	if e.Has(CloseWrite) {
		mask |= unix.IN_CLOSE_WRITE
	}
	if e.Has(CloseNowrite) {
		mask |= unix.IN_CLOSE_NOWRITE
	}
	if e.Has(Open) {
		mask |= unix.IN_OPEN
	}
	if e.Has(MovedFrom) {
		mask |= unix.IN_MOVED_FROM
	}
	if e.Has(MovedTo) {
		mask |= unix.IN_MOVED_TO
	}
	if e.Has(Create) {
		mask |= unix.IN_CREATE
	}
	if e.Has(DeleteSub) {
		mask |= unix.IN_DELETE
	}
	if e.Has(DeleteSelf) {
		mask |= unix.IN_DELETE_SELF
	}
	if e.Has(MoveSelf) {
		mask |= unix.IN_MOVE_SELF
	}
	return mask
}

func (inotifyTranslator) FromNative(mask uint32) Event {
	var e Event
	if mask&unix.IN_ACCESS != 0 {
		e |= Access
	}
	if mask&unix.IN_MODIFY != 0 {
		e |= Modify
	}
	if mask&unix.IN_ATTRIB != 0 {
		e |= Attrib
	}
	if mask&unix.IN_CLOSE_WRITE != 0 {
		e |= CloseWrite
	}
	if mask&unix.IN_CLOSE_NOWRITE != 0 {
		e |= CloseNowrite
	}
	if mask&unix.IN_OPEN != 0 {
		e |= Open
	}
	if mask&unix.IN_MOVED_FROM != 0 {
		e |= MovedFrom
	}
	if mask&unix.IN_MOVED_TO != 0 {
		e |= MovedTo
	}
	if mask&unix.IN_CREATE != 0 {
		e |= Create
	}
	if mask&unix.IN_DELETE != 0 {
		e |= DeleteSub
	}
	if mask&unix.IN_DELETE_SELF != 0 {
		e |= DeleteSelf
	}
	if mask&unix.IN_MOVE_SELF != 0 {
		e |= MoveSelf
	}
	return e
}

func (inotifyTranslator) Supported() Event { return All }
