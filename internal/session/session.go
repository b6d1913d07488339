// Package session wires the catalog, event director, Q&A engine and task
// timeline behind one mutex. The engine is logically single-threaded: every
// state transition happens inside a discrete call with an externally
// supplied now (wall clock by default), and delayed work is timeline data
// drained by Advance, never a sleeping goroutine.
package session

import (
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ghoststream/internal/catalog"
	"ghoststream/internal/chatrate"
	"ghoststream/internal/director"
	"ghoststream/internal/qna"
	"ghoststream/internal/timeline"
)

// systemAsker is the identity Q&A questions are asked under.
const systemAsker = "system"

// qualifyingScenes are the scene keys whose switches spawn reaction bursts.
var qualifyingScenes = map[string]bool{
	"dark_hall": true,
	"basement":  true,
	"attic":     true,
}

// Options configures a session. Zero values get sane defaults.
type Options struct {
	Seed               int64 // 0 means time-based
	Rand               *rand.Rand
	Director           director.Config
	BaseChatRate       rate.Limit // full-speed messages/sec per user
	PlaySfx            func(key, reason string, delay time.Duration)
	RequestSceneSwitch func(scene, reason string, delay time.Duration)
}

// Session is one live haunted-stream run.
type Session struct {
	mu sync.Mutex

	cat   *catalog.Catalog
	dir   *director.Director
	qa    *qna.Engine
	tl    *timeline.Timeline
	pacer *chatrate.Pacer
	rng   *rand.Rand

	playSfx func(key, reason string, delay time.Duration)

	pendingQuestion *catalog.Line
}

// New builds a fully wired session over the catalog.
func New(cat *catalog.Catalog, opts Options) *Session {
	rng := opts.Rand
	if rng == nil {
		seed := opts.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	if opts.Director == (director.Config{}) {
		opts.Director = director.DefaultConfig()
	}
	if opts.BaseChatRate <= 0 {
		opts.BaseChatRate = 1.5
	}

	s := &Session{cat: cat, tl: timeline.New(), rng: rng, playSfx: opts.PlaySfx}
	s.qa = qna.NewEngine(cat, rng)
	s.dir = director.New(cat, opts.Director, rng, s.tl, director.Callbacks{
		PlaySfx:            opts.PlaySfx,
		RequestSceneSwitch: opts.RequestSceneSwitch,
		StartFlow:          s.startFlow,
	})
	s.pacer = chatrate.NewPacer(opts.BaseChatRate, 2, s.dir.Lock().SpeedMultiplier)
	return s
}

// TriggerStoryEvent requests a scripted story beat.
func (s *Session) TriggerStoryEvent(key, sourceUser string, now time.Time) (director.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Trigger(key, director.TriggerContext{SourceUser: sourceUser}, now)
}

// HandleUserMessage feeds one player chat message into the engine: roster
// update, lock release attempt, and the Q&A reply path when the flow is
// awaiting the tagged user.
func (s *Session) HandleUserMessage(user, text string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dir.Roster().Note(user)

	if s.dir.Lock().Locked && !s.qa.Active() {
		if s.dir.Lock().UnlockByReply(user) {
			log.Printf("[SESSION] lock released by %s", user)
		}
	}

	st := s.qa.State()
	if s.qa.Active() && st.AwaitingReply && user == st.Ask.Tagged {
		opt, kind := s.qa.ParseReply(text)
		s.applyReply(opt, kind, now)
	}
}

// applyReply advances the flow for a parsed reply. Callers hold the lock.
func (s *Session) applyReply(opt catalog.Option, kind qna.MatchKind, now time.Time) {
	out := s.qa.ApplyOptionResult(opt, kind, now)
	switch {
	case out.Status == qna.StatusAborted:
		// Same step, escalating re-ask delay.
		s.askFlowQuestion(now)
	case out.Advanced:
		s.askFlowQuestion(now)
	case out.Ended:
		// Read the chained key before StopFlow resets the dialog state.
		chain := s.qa.TakePendingChain()
		if chain == "" {
			s.stopFlow("completed")
			return
		}
		s.stopFlow("chained:" + chain)
		if _, err := s.dir.Trigger(chain, director.TriggerContext{}, now); err != nil {
			log.Printf("[SESSION] chain trigger failed key=%s: %v", chain, err)
		}
	}
}

// startFlow is the director's flow-start callback. Callers hold the lock.
func (s *Session) startFlow(flowID, tagged string, now time.Time) {
	if err := s.qa.StartFlow(flowID, tagged, systemAsker, now); err != nil {
		log.Printf("[SESSION] %v", err)
		return
	}
	s.askFlowQuestion(now)
}

// askFlowQuestion picks the current step's question; a first-attempt ask is
// committed immediately, re-asks are scheduled on the timeline.
func (s *Session) askFlowQuestion(now time.Time) {
	q, askAt, ok := s.qa.AskCurrentQuestion(now)
	if !ok {
		s.stopFlow("missing_step")
		return
	}
	if askAt.After(now) {
		s.pendingQuestion = &q
		s.tl.Schedule(timeline.Task{
			FireAt: askAt,
			Owner:  qnaOwner(s.qa.State().FlowID),
			Kind:   timeline.KindAsk,
			Key:    s.qa.State().FlowID,
		})
		return
	}
	s.commitQuestion(q, now)
}

// commitQuestion publishes the question line and confirms the send.
func (s *Session) commitQuestion(q catalog.Line, now time.Time) {
	s.dir.Push(director.ChatLine{Type: "qna", Text: q.Text, Translation: q.Translation})
	s.qa.MarkQuestionCommitted(now)
}

// stopFlow resets the Q&A engine and drops its scheduled tasks.
func (s *Session) stopFlow(reason string) {
	flowID := s.qa.StopFlow(reason)
	s.pendingQuestion = nil
	if flowID != "" {
		s.tl.CancelOwner(qnaOwner(flowID))
	}
}

// StopQnaFlow aborts any running flow (host-initiated).
func (s *Session) StopQnaFlow(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopFlow(reason)
}

// HandleSceneSwitch reports that the player view switched scenes. A
// qualifying scene spawns a reaction burst.
func (s *Session) HandleSceneSwitch(toKey string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !qualifyingScenes[toKey] {
		return
	}
	s.dir.BumpTension(0.1, now)
	s.dir.SpawnReactionWindow("scene_reaction", now)
}

// HandleSfxStart reports that a sound effect started playing.
func (s *Session) HandleSfxStart(sfxKey string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir.BumpTension(0.15, now)
	s.dir.SpawnReactionWindow("sfx_reaction", now)
}

// HandleIdleTick emits background chatter when its cooldown allows.
func (s *Session) HandleIdleTick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dir.Trigger("ambient_chatter", director.TriggerContext{}, now); err != nil {
		log.Printf("[SESSION] idle tick: %v", err)
	}
}

// Advance drains due timeline tasks, ticks reaction windows and tension
// decay, and checks Q&A timeout pressure. Call on the host's cadence.
func (s *Session) Advance(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tl.DrainDue(now) {
		switch task.Kind {
		case timeline.KindTrigger:
			if _, err := s.dir.Trigger(task.Key, director.TriggerContext{SourceUser: task.User}, now); err != nil {
				log.Printf("[SESSION] deferred trigger key=%s: %v", task.Key, err)
			}
		case timeline.KindAsk:
			if s.pendingQuestion != nil {
				q := *s.pendingQuestion
				s.pendingQuestion = nil
				s.commitQuestion(q, now)
			}
		case timeline.KindSfx:
			// delayed side effects are passed through the callbacks at emit
			// time; nothing to do here
		case timeline.KindScene:
		}
	}

	s.dir.Tick(now)

	switch s.qa.HandleTimeoutPressure(now) {
	case qna.PressureLowRumble:
		s.emitPressureSfx("sfx_low_rumble", now)
	case qna.PressureGhostPing:
		s.emitGhostPing(now)
	}
}

func (s *Session) emitPressureSfx(key string, now time.Time) {
	log.Printf("[SESSION] qna pressure sfx=%s", key)
	s.dir.BumpTension(0.1, now)
	if s.playSfx != nil {
		s.playSfx(key, "qna_pressure", 0)
	}
}

// emitGhostPing posts a direct spectral nudge at the tagged user.
func (s *Session) emitGhostPing(now time.Time) {
	st := s.qa.State()
	pool := s.cat.Pack("ghost_ping")
	if len(pool) == 0 || st.Ask.Tagged == "" {
		return
	}
	v := pool[s.rng.Intn(len(pool))]
	ln := v.Lines[s.rng.Intn(len(v.Lines))]
	s.dir.Push(director.ChatLine{
		Type:        "ghost_ping",
		Text:        strings.ReplaceAll(ln.Text, "{user}", st.Ask.Tagged),
		Translation: strings.ReplaceAll(ln.Translation, "{user}", st.Ask.Tagged),
	})
	s.dir.BumpTension(0.15, now)
}

// DrainOutput returns the chat lines accumulated since the last drain.
func (s *Session) DrainOutput() []director.ChatLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Drain()
}

// SpeedMultiplier returns the chat-rate factor the lock imposes on user.
func (s *Session) SpeedMultiplier(user string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.Lock().SpeedMultiplier(user)
}

// Pacer returns the per-user chat pacer bound to this session's lock state.
func (s *Session) Pacer() *chatrate.Pacer { return s.pacer }

// Snapshot is the session-wide debug view; read-only, non-authoritative.
type Snapshot struct {
	Director director.Snapshot
	Qna      qna.State
	Timeline int
}

// DebugSnapshot returns a copy of the observable state.
func (s *Session) DebugSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Director: s.dir.DebugSnapshot(),
		Qna:      s.qa.State(),
		Timeline: s.tl.Len(),
	}
}

// Reset restores the whole session to its initial state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qa.StopFlow("reset")
	s.pendingQuestion = nil
	s.tl.Reset()
	s.dir.Reset()
	s.pacer.Reset()
}

func qnaOwner(flowID string) string { return "qna:" + flowID }
