package session

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"ghoststream/internal/catalog"
	"ghoststream/internal/director"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type sfxCall struct {
	key   string
	delay time.Duration
}

type recorder struct {
	sfx    []sfxCall
	scenes []string
}

func (r *recorder) playSfx(key, reason string, delay time.Duration) {
	r.sfx = append(r.sfx, sfxCall{key: key, delay: delay})
}

func (r *recorder) requestScene(scene, reason string, delay time.Duration) {
	r.scenes = append(r.scenes, scene)
}

func newTestSession(rec *recorder) *Session {
	opts := Options{
		Rand:         rand.New(rand.NewSource(5)),
		BaseChatRate: 2,
	}
	if rec != nil {
		opts.PlaySfx = rec.playSfx
		opts.RequestSceneSwitch = rec.requestScene
	}
	return New(catalog.NewDefault(), opts)
}

func linesOfType(lines []director.ChatLine, typ string) []director.ChatLine {
	var out []director.ChatLine
	for _, l := range lines {
		if l.Type == typ {
			out = append(out, l)
		}
	}
	return out
}

func TestIdleTickEmitsAmbientOnCooldown(t *testing.T) {
	s := newTestSession(nil)

	s.HandleIdleTick(t0)
	lines := s.DrainOutput()
	require.Len(t, lines, 1)
	assert.Equal(t, "ambient", lines[0].Type)

	// inside the 8s cooldown nothing comes out
	s.HandleIdleTick(t0.Add(2 * time.Second))
	assert.Empty(t, s.DrainOutput())

	s.HandleIdleTick(t0.Add(9 * time.Second))
	assert.Len(t, s.DrainOutput(), 1)
}

func TestFollowUpFiresThroughAdvance(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(rec)

	res, err := s.TriggerStoryEvent("whisper_intro", "", t0)
	require.NoError(t, err)
	require.True(t, res.Emitted)
	require.Equal(t, 1, s.DebugSnapshot().Timeline)
	s.DrainOutput()

	// before the 4s delay nothing fires
	s.Advance(t0.Add(3 * time.Second))
	assert.Empty(t, linesOfType(s.DrainOutput(), "knock"))

	s.Advance(t0.Add(4 * time.Second))
	knocks := linesOfType(s.DrainOutput(), "knock")
	require.Len(t, knocks, 1)
	require.Len(t, rec.sfx, 1)
	assert.Equal(t, "sfx_knock_far", rec.sfx[0].key)
}

func TestSceneSwitchSpawnsReactionsOnlyForQualifyingScenes(t *testing.T) {
	s := newTestSession(nil)

	s.HandleSceneSwitch("kitchen", t0)
	assert.Equal(t, 0, s.DebugSnapshot().Director.LiveReactions)

	s.HandleSceneSwitch("dark_hall", t0)
	assert.Equal(t, 1, s.DebugSnapshot().Director.LiveReactions)

	// reaction lines trickle out over the window
	var emitted int
	for now := t0; now.Before(t0.Add(15 * time.Second)); now = now.Add(200 * time.Millisecond) {
		s.Advance(now)
		emitted += len(linesOfType(s.DrainOutput(), "scene_reaction"))
	}
	assert.Greater(t, emitted, 0)
	assert.Equal(t, 0, s.DebugSnapshot().Director.LiveReactions)
}

func TestLockChallengeFullDialog(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(rec)

	s.HandleUserMessage("alice", "hi", t0)
	s.HandleUserMessage("bob", "hello", t0)

	res, err := s.TriggerStoryEvent("lock_challenge", "alice", t0)
	require.NoError(t, err)
	require.True(t, res.Emitted)

	lines := s.DrainOutput()
	chall := linesOfType(lines, "lock_challenge")
	require.Len(t, chall, 1)
	assert.Contains(t, chall[0].Text, "@alice")
	questions := linesOfType(lines, "qna")
	require.Len(t, questions, 1, "first question committed immediately")
	assert.Contains(t, questions[0].Text, "@alice")

	// lock halves everyone but the target
	assert.Equal(t, 1.0, s.SpeedMultiplier("alice"))
	assert.Equal(t, 0.5, s.SpeedMultiplier("bob"))
	assert.Equal(t, rate.Limit(1), s.Pacer().Limit("bob"))
	assert.Equal(t, rate.Limit(2), s.Pacer().Limit("alice"))

	// a non-tagged user's answer is ignored
	s.HandleUserMessage("bob", "門邊", t0.Add(2*time.Second))
	snap := s.DebugSnapshot()
	assert.Equal(t, "s1", snap.Qna.StepID)
	assert.True(t, snap.Qna.AwaitingReply)

	// the tagged user advances to step two
	s.HandleUserMessage("alice", "在門邊", t0.Add(3*time.Second))
	snap = s.DebugSnapshot()
	assert.Equal(t, "s2", snap.Qna.StepID)
	q2 := linesOfType(s.DrainOutput(), "qna")
	require.Len(t, q2, 1)
	assert.Contains(t, q2[0].Text, "@alice")

	// "還在" chains into door_scratch and ends the flow
	s.HandleUserMessage("alice", "還在", t0.Add(6*time.Second))
	snap = s.DebugSnapshot()
	assert.False(t, snap.Qna.Active)
	require.NotEmpty(t, snap.Qna.History)
	assert.Equal(t, "stopped:chained:door_scratch", snap.Qna.History[len(snap.Qna.History)-1])
	assert.Empty(t, snap.Qna.PendingChain, "chain key consumed by the trigger")

	scratch := linesOfType(s.DrainOutput(), "scratch")
	require.Len(t, scratch, 1)
	require.Len(t, rec.sfx, 1)
	assert.Equal(t, "sfx_scratch", rec.sfx[0].key)
	assert.Equal(t, 800*time.Millisecond, rec.sfx[0].delay)

	// while the flow ran, alice's replies never released the lock
	assert.True(t, s.DebugSnapshot().Director.Lock.Locked)

	// after the flow, the target's next message releases it
	s.HandleUserMessage("alice", "我還在看", t0.Add(8*time.Second))
	assert.False(t, s.DebugSnapshot().Director.Lock.Locked)
	assert.Equal(t, 1.0, s.SpeedMultiplier("bob"))
}

func TestUnknownReplySchedulesDelayedReAsk(t *testing.T) {
	s := newTestSession(nil)
	s.HandleUserMessage("alice", "hi", t0)
	s.HandleUserMessage("bob", "hello", t0)

	_, err := s.TriggerStoryEvent("lock_challenge", "alice", t0)
	require.NoError(t, err)
	s.DrainOutput()

	s.HandleUserMessage("alice", "不知道", t0.Add(2*time.Second))

	// the re-ask sits on the timeline instead of going out immediately
	snap := s.DebugSnapshot()
	assert.Equal(t, 1, snap.Timeline)
	assert.False(t, snap.Qna.AwaitingReply)
	assert.Empty(t, linesOfType(s.DrainOutput(), "qna"))

	// too early: still pending
	s.Advance(t0.Add(7 * time.Second))
	assert.Empty(t, linesOfType(s.DrainOutput(), "qna"))

	// the 6-10s re-ask window has certainly elapsed by +13s
	s.Advance(t0.Add(13 * time.Second))
	reasks := linesOfType(s.DrainOutput(), "qna")
	require.Len(t, reasks, 1)
	snap = s.DebugSnapshot()
	assert.True(t, snap.Qna.AwaitingReply)
	assert.Equal(t, "s1", snap.Qna.StepID)
}

func TestTimeoutPressureEscalation(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(rec)
	s.HandleUserMessage("alice", "hi", t0)
	s.HandleUserMessage("bob", "hello", t0)

	_, err := s.TriggerStoryEvent("lock_challenge", "alice", t0)
	require.NoError(t, err)
	s.DrainOutput()
	rec.sfx = nil

	s.Advance(t0.Add(30 * time.Second))
	assert.Empty(t, rec.sfx)

	// 40s of silence: low rumble, once
	s.Advance(t0.Add(41 * time.Second))
	require.Len(t, rec.sfx, 1)
	assert.Equal(t, "sfx_low_rumble", rec.sfx[0].key)
	s.Advance(t0.Add(45 * time.Second))
	assert.Len(t, rec.sfx, 1)

	// 60s of silence: ghost ping at the tagged user, once
	s.Advance(t0.Add(61 * time.Second))
	pings := linesOfType(s.DrainOutput(), "ghost_ping")
	require.Len(t, pings, 1)
	assert.Contains(t, pings[0].Text, "@alice")

	s.Advance(t0.Add(70 * time.Second))
	assert.Empty(t, linesOfType(s.DrainOutput(), "ghost_ping"))
}

func TestStopQnaFlowCancelsPendingAsk(t *testing.T) {
	s := newTestSession(nil)
	s.HandleUserMessage("alice", "hi", t0)
	s.HandleUserMessage("bob", "hello", t0)

	_, err := s.TriggerStoryEvent("lock_challenge", "alice", t0)
	require.NoError(t, err)
	s.DrainOutput()

	// force a pending delayed re-ask, then abort the whole flow
	s.HandleUserMessage("alice", "不知道", t0.Add(2*time.Second))
	require.Equal(t, 1, s.DebugSnapshot().Timeline)

	s.StopQnaFlow("host_abort")
	snap := s.DebugSnapshot()
	assert.False(t, snap.Qna.Active)
	assert.Equal(t, 0, snap.Timeline)

	// the cancelled ask never fires
	s.Advance(t0.Add(time.Minute))
	assert.Empty(t, linesOfType(s.DrainOutput(), "qna"))
}

func TestResetRestoresSession(t *testing.T) {
	s := newTestSession(nil)
	s.HandleUserMessage("alice", "hi", t0)
	s.HandleUserMessage("bob", "hello", t0)
	_, err := s.TriggerStoryEvent("lock_challenge", "alice", t0)
	require.NoError(t, err)

	s.Reset()

	snap := s.DebugSnapshot()
	assert.False(t, snap.Qna.Active)
	assert.False(t, snap.Director.Lock.Locked)
	assert.Equal(t, 0, snap.Timeline)
	assert.Equal(t, 0, snap.Director.PendingOutput)

	// cooldowns cleared: the same event fires again right away
	s.HandleUserMessage("alice", "hi", t0)
	s.HandleUserMessage("bob", "hello", t0)
	res, err := s.TriggerStoryEvent("lock_challenge", "alice", t0)
	require.NoError(t, err)
	assert.True(t, res.Emitted)
}
