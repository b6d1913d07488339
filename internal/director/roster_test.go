package director

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRosterNoteAndOrder(t *testing.T) {
	r := NewRoster()
	r.Note("alice")
	r.Note("bob")
	r.Note("alice") // duplicate, keeps first position
	r.Note("  ")    // blank ignored

	assert.Equal(t, []string{"alice", "bob"}, r.List())
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Has("alice"))
	assert.False(t, r.Has("carol"))
}

func TestRosterRejectsReservedIdentities(t *testing.T) {
	r := NewRoster()
	r.Note("system")
	r.Note("Director")
	r.Note("STREAM")
	r.Note("alice")

	assert.Equal(t, []string{"alice"}, r.List())
}

func TestRosterEvictsOldestPastLimit(t *testing.T) {
	r := NewRoster()
	for i := 0; i < rosterLimit+1; i++ {
		r.Note(fmt.Sprintf("user%02d", i))
	}
	assert.Equal(t, rosterLimit, r.Count())
	assert.False(t, r.Has("user00"))
	assert.True(t, r.Has("user01"))
}

func TestRosterReset(t *testing.T) {
	r := NewRoster()
	r.Note("alice")
	r.Reset()
	assert.Equal(t, 0, r.Count())
	assert.False(t, r.Has("alice"))
}
