package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueuePushPop(t *testing.T) {
	q := newEventQueue(4)
	q.push(FileSystemEvent{Path: "/a", Flag: Create})
	fse, ok := q.pop(make(chan struct{}))
	require.True(t, ok)
	assert.Equal(t, "/a", fse.Path)
}

func TestEventQueuePopStops(t *testing.T) {
	q := newEventQueue(4)
	stop := make(chan struct{})
	close(stop)
	_, ok := q.pop(stop)
	assert.False(t, ok)
}

func TestEventQueueOverflowSynthesized(t *testing.T) {
	q := newEventQueue(1)
	q.push(FileSystemEvent{Path: "/a", Flag: Create}) // fills the one slot
	q.push(FileSystemEvent{Path: "/b", Flag: Create}) // no room: latches overflow

	first, ok := q.tryPop()
	require.True(t, ok)
	assert.Equal(t, EventQueueOverflow, first.Flag, "overflow is reported before the backlog")

	second, ok := q.tryPop()
	require.True(t, ok)
	assert.Equal(t, "/a", second.Path)

	_, ok = q.tryPop()
	assert.False(t, ok)
}

func TestEventQueueOverflowLatchedOnce(t *testing.T) {
	q := newEventQueue(1)
	q.push(FileSystemEvent{Path: "/a", Flag: Create})
	q.push(FileSystemEvent{Path: "/b", Flag: Create})
	q.push(FileSystemEvent{Path: "/c", Flag: Create})

	first, ok := q.tryPop()
	require.True(t, ok)
	assert.Equal(t, EventQueueOverflow, first.Flag)

	// Only one overflow marker per episode, even though two pushes were lost.
	second, _ := q.tryPop()
	assert.NotEqual(t, EventQueueOverflow, second.Flag)
}

func TestEventQueueTryPopEmpty(t *testing.T) {
	q := newEventQueue(4)
	_, ok := q.tryPop()
	assert.False(t, ok)
}
