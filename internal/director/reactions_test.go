package director

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnReactionWindowBounds(t *testing.T) {
	d, _ := newTestDirector(Callbacks{}, nil)

	w := d.SpawnReactionWindow("sfx_reaction", t0)
	require.NotNil(t, w)
	assert.GreaterOrEqual(t, w.Pending, reactionBasePending)
	assert.LessOrEqual(t, w.Pending, 2*reactionBasePending)
	assert.True(t, w.EndAt.After(t0.Add(reactionMinDuration-time.Millisecond)))
	assert.False(t, w.EndAt.After(t0.Add(reactionMaxDuration)))
	assert.True(t, w.NextEmitAt.After(t0))
	assert.Len(t, d.LiveReactionWindows(), 1)
}

func TestHighTensionTightensGapsAndAddsPending(t *testing.T) {
	d, _ := newTestDirector(Callbacks{}, nil)
	d.BumpTension(1, t0)
	require.Equal(t, 2, d.TensionTier())

	w := d.SpawnReactionWindow("sfx_reaction", t0)
	assert.Equal(t, reactionBaseMinGap-2*reactionGapMinStep, w.MinGap)
	assert.Equal(t, reactionBaseMaxGap-2*reactionGapMaxStep, w.MaxGap)
	assert.LessOrEqual(t, w.Pending, 2*reactionBasePending+2)
}

func TestReactionWindowEmitsThenDies(t *testing.T) {
	d, _ := newTestDirector(Callbacks{}, nil)

	w := d.SpawnReactionWindow("scene_reaction", t0)
	budget := w.Pending

	var emitted int
	lastPending := budget
	for now := t0; !now.After(w.EndAt.Add(2 * time.Second)); now = now.Add(200 * time.Millisecond) {
		d.Tick(now)
		emitted += len(d.Drain())
		// pending only ever decreases and never goes negative
		assert.LessOrEqual(t, w.Pending, lastPending)
		assert.GreaterOrEqual(t, w.Pending, 0)
		lastPending = w.Pending
	}

	assert.Greater(t, emitted, 0)
	assert.LessOrEqual(t, emitted, budget)
	assert.Empty(t, d.LiveReactionWindows(), "window must self-destruct on exhaustion or expiry")
}

func TestTicksBeforeNextEmitProduceNothing(t *testing.T) {
	d, _ := newTestDirector(Callbacks{}, nil)

	w := d.SpawnReactionWindow("sfx_reaction", t0)
	d.Tick(w.NextEmitAt.Add(-time.Millisecond))
	assert.Empty(t, d.Drain())
}

func TestConcurrentWindowsRunIndependently(t *testing.T) {
	d, _ := newTestDirector(Callbacks{}, nil)

	d.SpawnReactionWindow("sfx_reaction", t0)
	d.SpawnReactionWindow("scene_reaction", t0)
	require.Len(t, d.LiveReactionWindows(), 2)

	var emitted int
	for now := t0; now.Before(t0.Add(reactionMaxDuration + time.Second)); now = now.Add(200 * time.Millisecond) {
		d.Tick(now)
		emitted += len(d.Drain())
	}
	assert.Greater(t, emitted, 1)
	assert.Empty(t, d.LiveReactionWindows())
}
