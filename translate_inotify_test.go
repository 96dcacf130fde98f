//go:build linux

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestInotifyTranslatorRoundTrip(t *testing.T) {
	tr := inotifyTranslator{}
	for _, atom := range All.Atoms() {
		native := tr.ToNative(atom)
		assert.NotZero(t, native, "%s must have a native bit", atom)
		assert.Equal(t, atom, tr.FromNative(native), "%s must round-trip", atom)
	}
}

func TestInotifyTranslatorSupportsEverything(t *testing.T) {
	tr := inotifyTranslator{}
	assert.Equal(t, All, tr.Supported())
	assert.False(t, unsupportedMask(tr, All))
}

func TestInotifyTranslatorOverflowBit(t *testing.T) {
	tr := inotifyTranslator{}
	e := tr.FromNative(unix.IN_Q_OVERFLOW)
	assert.Equal(t, None, e, "the overflow bit carries no vocabulary atom; callers check it separately")
}
