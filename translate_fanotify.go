//go:build linux

package notify

import "golang.org/x/sys/unix"

// fanotifyTranslator implements the fanotify side of the native-mask
// mapping. fanotify can express exactly five of the twelve atoms (access,
// modify, the two close variants, open); everything else — attrib, the move
// family, create, and the two delete variants — contributes 0 from
// ToNative. A mask made up only of those unsupported atoms must fail
// subscription with ErrUnsupportedEvent (checked by the caller via
// unsupportedMask).
type fanotifyTranslator struct{}

func (fanotifyTranslator) ToNative(e Event) uint32 {
	var mask uint32
	if e.Has(Access) {
		mask |= unix.FAN_ACCESS
	}
	if e.Has(Modify) {
		mask |= unix.FAN_MODIFY
	}
	if e.Has(CloseWrite) {
		mask |= unix.FAN_CLOSE_WRITE
	}
	if e.Has(CloseNowrite) {
		mask |= unix.FAN_CLOSE_NOWRITE
	}
	if e.Has(Open) {
		mask |= unix.FAN_OPEN
	}
	return mask
}

func (fanotifyTranslator) FromNative(mask uint32) Event {
	var e Event
	if mask&unix.FAN_ACCESS != 0 {
		e |= Access
	}
	if mask&unix.FAN_MODIFY != 0 {
		e |= Modify
	}
	if mask&unix.FAN_CLOSE_WRITE != 0 {
		e |= CloseWrite
	}
	if mask&unix.FAN_CLOSE_NOWRITE != 0 {
		e |= CloseNowrite
	}
	if mask&unix.FAN_OPEN != 0 {
		e |= Open
	}
	return e
}

func (fanotifyTranslator) Supported() Event {
	return Access | Modify | CloseWrite | CloseNowrite | Open
}
