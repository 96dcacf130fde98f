package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKernelLimitErrorUnwraps(t *testing.T) {
	cause := errors.New("no space left on device")
	err := newKernelLimitError("4096 watches held", cause)
	assert.ErrorIs(t, err, ErrKernelLimit)
	assert.Contains(t, err.Error(), "4096 watches held")
}

func TestBackendErrorWraps(t *testing.T) {
	cause := errors.New("bad file descriptor")
	err := newBackendError("read", "/tmp/foo", cause)
	assert.ErrorIs(t, err, ErrBackend)
	assert.Contains(t, err.Error(), "/tmp/foo")
}

func TestWrapf(t *testing.T) {
	err := wrapf(ErrNotAFile, "%s", "/tmp/bar")
	assert.ErrorIs(t, err, ErrNotAFile)
	assert.Contains(t, err.Error(), "/tmp/bar")
}
