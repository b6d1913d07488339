// Package director is the story orchestrator: it evaluates blocking
// conditions for requested story events, emits audience lines through the
// dedup engine, commits cooldowns, schedules delayed follow-ups, and keeps
// the exclusive lock sub-state plus a retry queue for blocked triggers.
// All state lives on the Director instance; callers serialize access
// (one logical mutator, see session).
package director

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"ghoststream/internal/catalog"
	"ghoststream/internal/recency"
	"ghoststream/internal/textsim"
	"ghoststream/internal/timeline"
)

// ChatLine is one emitted audience line, drained by the host per cycle.
type ChatLine struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// Callbacks are the side-effect requests the director emits. Injected at
// construction; any may be nil. Delays are passed through for the host's
// audio/scene layers to honor.
type Callbacks struct {
	PlaySfx            func(key, reason string, delay time.Duration)
	RequestSceneSwitch func(scene, reason string, delay time.Duration)
	StartFlow          func(flowID, taggedUser string, now time.Time)
}

// TriggerContext carries per-call inputs into a trigger attempt.
type TriggerContext struct {
	SourceUser  string   // initiating user, preferred lock/tag target
	ActiveUsers []string // overrides the roster when non-nil
}

// RunState is the lifecycle state of one trigger attempt.
type RunState string

const (
	RunActive  RunState = "active"
	RunAborted RunState = "aborted"
	RunDone    RunState = "done"
)

// RunRecord is the synchronous lifecycle record of one trigger attempt.
type RunRecord struct {
	RunID       string
	Key         string
	State       RunState
	StartedAt   time.Time
	AbortReason BlockReason
	LineIDs     []string
}

// Result reports one Trigger call's outcome.
type Result struct {
	Emitted bool
	Reason  BlockReason
	Run     RunRecord
	Line    ChatLine
}

// Config holds the hand-tuned selection constants. Treated as configuration,
// not derived values.
type Config struct {
	IDWindow       int           // variant ids kept per event key
	ToneWindow     int           // tones kept across emissions
	PersonaWindow  int           // personas kept across emissions
	TextWindow     int           // accepted lines kept per topic (dedup viewport)
	PickTries      int           // dedup retry budget
	MaxWait        time.Duration // retry-queue deadline for blocked triggers
	SfxCooldown    time.Duration // shared cooldown across all scare sound effects
	TensionDecay   float64       // tension lost per second while idle
	MinActiveUsers int           // floor applied when an event sets none
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		IDWindow:       6,
		ToneWindow:     2,
		PersonaWindow:  6,
		TextWindow:     8,
		PickTries:      textsim.DefaultPickTries,
		MaxWait:        DefaultMaxWait,
		SfxCooldown:    10 * time.Second,
		TensionDecay:   0.01,
		MinActiveUsers: 0,
	}
}

// Director owns all scheduling state for one session.
type Director struct {
	cat *catalog.Catalog
	cfg Config
	rng *rand.Rand
	tl  *timeline.Timeline
	cb  Callbacks

	ledger *Ledger
	retry  *RetryQueue
	roster *Roster
	lock   LockState

	textWins   map[string]*recency.Window[string] // per topic, accepted line texts
	idWins     map[string]*recency.Window[string] // per event key, variant ids
	toneWin    *recency.Window[string]
	personaWin *recency.Window[string]

	reactions []*ReactionWindow
	tension   float64
	tensionAt time.Time

	out        []ChatLine
	blocked    map[BlockReason]int
	lastKey    string
	lastReason BlockReason
	replaying  bool
}

// New creates a director. rng must not be nil (inject a seeded source in tests).
func New(cat *catalog.Catalog, cfg Config, rng *rand.Rand, tl *timeline.Timeline, cb Callbacks) *Director {
	return &Director{
		cat:        cat,
		cfg:        cfg,
		rng:        rng,
		tl:         tl,
		cb:         cb,
		ledger:     NewLedger(),
		retry:      NewRetryQueue(),
		roster:     NewRoster(),
		textWins:   make(map[string]*recency.Window[string]),
		idWins:     make(map[string]*recency.Window[string]),
		toneWin:    recency.NewWindow[string](cfg.ToneWindow),
		personaWin: recency.NewWindow[string](cfg.PersonaWindow),
		blocked:    make(map[BlockReason]int),
	}
}

// Roster exposes the active-user directory (session feeds it from chat history).
func (d *Director) Roster() *Roster { return d.roster }

// Lock exposes the lock state for reads and unlock attempts.
func (d *Director) Lock() *LockState { return &d.lock }

// Trigger runs one story-event attempt. Unknown keys are programmer errors;
// every expected contention outcome is a Result, not an error.
func (d *Director) Trigger(key string, ctx TriggerContext, now time.Time) (Result, error) {
	spec, ok := d.cat.Event(key)
	if !ok {
		return Result{}, fmt.Errorf("director: no event registered for key %q", key)
	}

	run := RunRecord{RunID: uuid.NewString(), Key: key, State: RunActive, StartedAt: now}
	d.lastKey = key

	if reason := d.checkBlocks(spec, ctx, now); reason != ReasonNone {
		d.countBlock(reason)
		d.retry.Push(QueueItem{
			Key:        key,
			Ctx:        ctx,
			EnqueuedAt: now,
			ExpiresAt:  now.Add(d.maxWait(spec)),
			Reason:     reason,
		})
		run.State = RunAborted
		run.AbortReason = reason
		log.Printf("[DIRECTOR] blocked key=%s reason=%s queue=%d", key, reason, d.retry.Len())
		return Result{Reason: reason, Run: run}, nil
	}

	res := d.emit(spec, ctx, run, now)

	// One replay pass over the retry queue after any successful emission.
	if res.Emitted && !d.replaying {
		d.replaying = true
		for _, it := range d.retry.TakeLive(now) {
			if _, err := d.Trigger(it.Key, it.Ctx, now); err != nil {
				log.Printf("[DIRECTOR] replay failed key=%s: %v", it.Key, err)
			}
		}
		d.replaying = false
	}
	return res, nil
}

// checkBlocks runs the blocking checks in fixed precedence order; the first
// failure wins and becomes the reported reason.
func (d *Director) checkBlocks(spec catalog.EventSpec, ctx TriggerContext, now time.Time) BlockReason {
	if d.ledger.Blocked(eventKey(spec.Key), now) {
		return ReasonBlockedByCooldown
	}
	if spec.SharedKey != "" && d.ledger.Blocked(sharedKey(spec.SharedKey), now) {
		return ReasonBlockedBySharedCD
	}
	if spec.Sfx != "" && d.ledger.Blocked(sfxLedgerKey, now) {
		return ReasonBlockedBySfxCD
	}
	if spec.NeedsUnlocked && d.lock.Locked {
		return ReasonBlockedByLock
	}
	min := spec.MinActiveUsers
	if min < d.cfg.MinActiveUsers {
		min = d.cfg.MinActiveUsers
	}
	if min > 0 && len(d.activeUsers(ctx)) < min {
		return ReasonBlockedByActiveUsers
	}
	return ReasonNone
}

// emit selects and publishes a line for an unblocked event, then commits
// cooldowns and schedules side effects and follow-ups.
func (d *Director) emit(spec catalog.EventSpec, ctx TriggerContext, run RunRecord, now time.Time) Result {
	pool := d.cat.Pack(spec.Topic)
	if len(pool) == 0 {
		// Non-fatal: a missing pool means no emission this call.
		return d.abort(run, ReasonMissingLineVariant)
	}

	if spec.TagsUser {
		var tagged []catalog.Variant
		for _, v := range pool {
			if hasUserTag(v) {
				tagged = append(tagged, v)
			}
		}
		if len(tagged) == 0 {
			return d.abort(run, ReasonStarterLineNotTagged)
		}
		pool = tagged
	}

	pool = filterVariants(pool, d.idViewport(spec.Key), d.toneWin, d.personaWin)
	cand, fresh := d.pickLine(pool, spec.Topic)

	target := d.tagTarget(ctx)
	line, tagOK := tagUser(cand.line, target)
	if !tagOK {
		return d.abort(run, ReasonActiveUserMissing)
	}

	// Commit cooldowns only after the line is settled: a blocked emission
	// must not advance the ledger.
	d.ledger.Commit(eventKey(spec.Key), now, time.Duration(spec.Cooldown))
	if spec.SharedKey != "" {
		d.ledger.Commit(sharedKey(spec.SharedKey), now, time.Duration(spec.SharedCooldown))
	}
	if spec.Sfx != "" {
		d.ledger.Commit(sfxLedgerKey, now, d.cfg.SfxCooldown)
	}

	if fresh {
		d.textViewport(spec.Topic).Push(cand.line.Text)
		d.idViewport(spec.Key).Push(cand.variant.ID)
		d.toneWin.Push(cand.variant.Tone)
		d.personaWin.Push(cand.variant.Persona)
	}

	out := ChatLine{Type: spec.Topic, Text: line.Text, Translation: line.Translation}
	d.out = append(d.out, out)
	run.LineIDs = append(run.LineIDs, cand.variant.ID)

	if spec.Sfx != "" && d.cb.PlaySfx != nil {
		d.cb.PlaySfx(spec.Sfx, spec.Key, time.Duration(spec.SfxDelay))
		d.BumpTension(0.25, now)
	}
	if spec.Scene != "" && d.cb.RequestSceneSwitch != nil {
		d.cb.RequestSceneSwitch(spec.Scene, spec.Key, time.Duration(spec.SceneDelay))
	}

	for _, fu := range spec.FollowUps {
		d.tl.Schedule(timeline.Task{
			FireAt: now.Add(time.Duration(fu.Delay)),
			Owner:  ownerTag(spec.Key),
			Kind:   timeline.KindTrigger,
			Key:    fu.Key,
			Reason: "follow_up:" + spec.Key,
			User:   ctx.SourceUser,
		})
	}

	if spec.Kind == catalog.KindLockStart {
		d.lock.Lock(target, now)
		d.BumpTension(0.2, now)
		log.Printf("[DIRECTOR] lock start key=%s target=%s", spec.Key, target)
	}
	if spec.FlowID != "" && d.cb.StartFlow != nil {
		d.cb.StartFlow(spec.FlowID, target, now)
	}

	d.lastReason = ReasonNone
	run.State = RunDone
	log.Printf("[DIRECTOR] emitted key=%s variant=%s run=%s", spec.Key, cand.variant.ID, run.RunID)
	return Result{Emitted: true, Run: run, Line: out}
}

func (d *Director) abort(run RunRecord, reason BlockReason) Result {
	d.countBlock(reason)
	run.State = RunAborted
	run.AbortReason = reason
	return Result{Reason: reason, Run: run}
}

// CancelFollowUps drops pending follow-up triggers scheduled by key.
func (d *Director) CancelFollowUps(key string) int {
	return d.tl.CancelOwner(ownerTag(key))
}

// Drain returns and clears the pending output lines. Called once per host cycle.
func (d *Director) Drain() []ChatLine {
	out := d.out
	d.out = nil
	return out
}

// Tick advances time-driven state: tension decay and reaction windows.
func (d *Director) Tick(now time.Time) {
	d.decayTension(now)
	d.tickReactions(now)
}

// activeUsers resolves the taggable viewer list for a trigger.
func (d *Director) activeUsers(ctx TriggerContext) []string {
	if ctx.ActiveUsers != nil {
		return ctx.ActiveUsers
	}
	return d.roster.List()
}

// tagTarget prefers the initiating user when they are a known viewer,
// otherwise a random active one.
func (d *Director) tagTarget(ctx TriggerContext) string {
	users := d.activeUsers(ctx)
	if ctx.SourceUser != "" {
		for _, u := range users {
			if u == ctx.SourceUser {
				return u
			}
		}
	}
	if len(users) == 0 {
		return ""
	}
	return users[d.rng.Intn(len(users))]
}

func (d *Director) countBlock(reason BlockReason) {
	d.blocked[reason]++
	d.lastReason = reason
}

func (d *Director) maxWait(spec catalog.EventSpec) time.Duration {
	if spec.MaxWait > 0 {
		return time.Duration(spec.MaxWait)
	}
	return d.cfg.MaxWait
}

func (d *Director) textViewport(topic string) *recency.Window[string] {
	w, ok := d.textWins[topic]
	if !ok {
		w = recency.NewWindow[string](d.cfg.TextWindow)
		d.textWins[topic] = w
	}
	return w
}

func (d *Director) idViewport(key string) *recency.Window[string] {
	w, ok := d.idWins[key]
	if !ok {
		w = recency.NewWindow[string](d.cfg.IDWindow)
		d.idWins[key] = w
	}
	return w
}

// Push appends a line produced outside the trigger path (Q&A questions,
// pressure pings) to the shared output queue.
func (d *Director) Push(line ChatLine) {
	d.out = append(d.out, line)
}

// BumpTension raises tension (clamped to [0,1]) after scare beats.
func (d *Director) BumpTension(amount float64, now time.Time) {
	d.decayTension(now)
	d.tension = clamp01(d.tension + amount)
}

func (d *Director) decayTension(now time.Time) {
	if !d.tensionAt.IsZero() {
		sec := now.Sub(d.tensionAt).Seconds()
		if sec > 0 {
			d.tension = clamp01(d.tension - d.cfg.TensionDecay*sec)
		}
	}
	d.tensionAt = now
}

// TensionTier maps tension onto the three reaction intensity tiers.
func (d *Director) TensionTier() int {
	switch {
	case d.tension >= 0.66:
		return 2
	case d.tension >= 0.33:
		return 1
	default:
		return 0
	}
}

// Snapshot is the read-only debug view; non-authoritative.
type Snapshot struct {
	LastKey       string
	LastReason    BlockReason
	Lock          LockState
	QueueLen      int
	QueueExpired  int
	Blocked       map[BlockReason]int
	Tension       float64
	LiveReactions int
	PendingOutput int
}

// DebugSnapshot returns a copy of the observable state.
func (d *Director) DebugSnapshot() Snapshot {
	blocked := make(map[BlockReason]int, len(d.blocked))
	for k, v := range d.blocked {
		blocked[k] = v
	}
	return Snapshot{
		LastKey:       d.lastKey,
		LastReason:    d.lastReason,
		Lock:          d.lock,
		QueueLen:      d.retry.Len(),
		QueueExpired:  d.retry.ExpiredCount(),
		Blocked:       blocked,
		Tension:       d.tension,
		LiveReactions: len(d.reactions),
		PendingOutput: len(d.out),
	}
}

// Reset restores the director to its initial state for a fresh session.
func (d *Director) Reset() {
	d.ledger.Reset()
	d.retry.Reset()
	d.roster.Reset()
	d.lock = LockState{}
	d.textWins = make(map[string]*recency.Window[string])
	d.idWins = make(map[string]*recency.Window[string])
	d.toneWin.Reset()
	d.personaWin.Reset()
	d.reactions = nil
	d.tension = 0
	d.tensionAt = time.Time{}
	d.out = nil
	d.blocked = make(map[BlockReason]int)
	d.lastKey = ""
	d.lastReason = ReasonNone
}

const sfxLedgerKey = "sfx:scare"

func eventKey(key string) string  { return "event:" + key }
func sharedKey(key string) string { return "shared:" + key }
func ownerTag(key string) string  { return "event:" + key }

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
