package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventHas(t *testing.T) {
	assert.True(t, Close.Has(CloseWrite))
	assert.True(t, Close.Has(CloseNowrite))
	assert.False(t, Close.Has(Access))
	assert.True(t, All.Has(Create))
}

func TestEventUnionIntersect(t *testing.T) {
	u := Access.Union(Modify)
	assert.Equal(t, Access|Modify, u)
	assert.Equal(t, Access, u.Intersect(Access))
	assert.Equal(t, None, Access.Intersect(Modify))
}

func TestEventIsAtomic(t *testing.T) {
	assert.True(t, Access.IsAtomic())
	assert.True(t, MoveSelf.IsAtomic())
	assert.False(t, None.IsAtomic())
	assert.False(t, Close.IsAtomic())
	assert.False(t, (Access | Modify).IsAtomic())
}

func TestEventAtoms(t *testing.T) {
	atoms := Close.Atoms()
	assert.Equal(t, []Event{CloseWrite, CloseNowrite}, atoms)

	atoms = All.Atoms()
	assert.Len(t, atoms, 12)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "", None.String())
	assert.Equal(t, "access", Access.String())
	assert.Equal(t, "close_write,close_nowrite,close", Close.String())
	assert.Equal(t, "moved_from,moved_to,move", Move.String())

	s := All.String()
	assert.Contains(t, s, "access")
	assert.Contains(t, s, "move_self")
	assert.Contains(t, s, "close")
	assert.Contains(t, s, "move")
}

func TestEventQueueOverflowString(t *testing.T) {
	assert.Equal(t, "q_overflow", EventQueueOverflow.String())
}
