//go:build linux

package notify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullTerminatedString(t *testing.T) {
	assert.Equal(t, "abc", nullTerminatedString([]byte("abc\x00\x00")))
	assert.Equal(t, "abc", nullTerminatedString([]byte("abc")))
	assert.Equal(t, "", nullTerminatedString([]byte{0, 'x'}))
}

func TestInotifyBackendWatchFileDeliversModify(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	c, err := InotifyController()
	require.NoError(t, err)
	defer c.Close()

	fse, err := NewFileSystemEvent(target, Modify)
	require.NoError(t, err)
	c.WatchFile(fse)
	require.NoError(t, c.Err())
	assert.Equal(t, []string{target}, c.WatchList())

	got := make(chan Notification, 4)
	c.OnEvent(Modify, func(n Notification) { got <- n })

	go c.Run()
	defer c.Stop()

	require.NoError(t, os.WriteFile(target, []byte("ab"), 0o644))

	select {
	case n := <-got:
		assert.Equal(t, target, n.Path)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for modify notification")
	}
}

func TestInotifyBackendUnwatchRemovesPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	c, err := InotifyController()
	require.NoError(t, err)
	defer c.Close()

	fse, err := NewFileSystemEvent(target, All)
	require.NoError(t, err)
	c.WatchFile(fse)
	require.NoError(t, c.Err())

	c.Unwatch(target)
	require.NoError(t, c.Err())
	assert.Empty(t, c.WatchList())
}

func TestInotifyBackendWatchDirectoryRejectsFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(target, []byte("a"), 0o644))

	c, err := InotifyController()
	require.NoError(t, err)
	defer c.Close()

	err = c.WatchDirectoryRaw(target, Modify)
	assert.Error(t, err)
}

func TestInotifyBackendWatchMountPointUnsupported(t *testing.T) {
	b, err := newInotifyBackend(16)
	require.NoError(t, err)
	defer b.Close()

	err = b.WatchMountPoint("/", All)
	assert.ErrorIs(t, err, ErrUnsupportedOp)
}
