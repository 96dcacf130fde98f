//go:build freebsd || openbsd || netbsd || dragonfly || darwin

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestKqueueTranslatorRoundTripsCleanlyForUnambiguousAtoms(t *testing.T) {
	tr := kqueueTranslator{}
	for _, atom := range []Event{Modify, Attrib, MoveSelf, DeleteSelf} {
		native := tr.ToNative(atom)
		assert.NotZero(t, native)
		assert.Equal(t, atom, tr.FromNative(native))
	}
}

func TestKqueueTranslatorAliasesWriteAndAccessToModify(t *testing.T) {
	tr := kqueueTranslator{}
	assert.Equal(t, tr.ToNative(Access), tr.ToNative(Modify))
	assert.Equal(t, Modify, tr.FromNative(uint32(unix.NOTE_WRITE)))
}

func TestKqueueTranslatorAliasesMoveFamilyToMoveSelf(t *testing.T) {
	tr := kqueueTranslator{}
	assert.Equal(t, tr.ToNative(MovedFrom), tr.ToNative(MoveSelf))
	assert.Equal(t, tr.ToNative(MovedTo), tr.ToNative(MoveSelf))
	assert.Equal(t, MoveSelf, tr.FromNative(uint32(unix.NOTE_RENAME)))
}

func TestKqueueTranslatorAliasesDeleteSubToDeleteSelf(t *testing.T) {
	tr := kqueueTranslator{}
	assert.Equal(t, tr.ToNative(DeleteSub), tr.ToNative(DeleteSelf))
	assert.Equal(t, DeleteSelf, tr.FromNative(uint32(unix.NOTE_DELETE)))
}

func TestKqueueTranslatorUnsupportedAtoms(t *testing.T) {
	tr := kqueueTranslator{}
	for _, atom := range []Event{CloseWrite, CloseNowrite, Open, Create} {
		assert.Zero(t, tr.ToNative(atom), "%s has no kqueue equivalent", atom)
	}
}
