// Package qna runs the per-event question/answer dialog state machine:
// ask a question, match the player's free-text reply against keyword sets,
// advance steps, chain into other story events, and escalate with one-shot
// timeout pressure. Keyword matching runs on an Aho-Corasick automaton built
// once per step. Callers serialize access (one logical mutator per session).
package qna

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"ghoststream/internal/catalog"
	"ghoststream/internal/recency"
)

// Status is the ask lifecycle. It only moves forward; StopFlow is the single
// transition back to idle.
type Status string

const (
	StatusIdle          Status = "IDLE"
	StatusAsking        Status = "ASKING"
	StatusAwaitingReply Status = "AWAITING_REPLY"
	StatusResolved      Status = "RESOLVED"
	StatusAborted       Status = "ABORTED"
)

// Abort reasons recorded on the ask record.
const (
	AbortUnknownRetry = "unknown_retry"
	AbortRetry        = "retry"
)

// Timeout pressure: one-shot escalation signals while awaiting a reply.
const (
	lowRumbleAfter = 40 * time.Second
	ghostPingAfter = 60 * time.Second

	PressureLowRumble = "low_rumble"
	PressureGhostPing = "ghost_ping"
)

// Question variants asked within the last 8 rounds are avoided.
const askedWindowSize = 8

// Re-ask delay bounds for attempts after the first.
const (
	reAskMin = 6 * time.Second
	reAskMax = 10 * time.Second
)

// Ask is the record of the current question round.
type Ask struct {
	Status      Status
	Asker       string
	Tagged      string
	QuestionID  string
	AskedAt     time.Time
	ResolvedAt  time.Time
	AbortReason string
}

// State is the session-scoped dialog state, mutated in place.
type State struct {
	Active        bool
	FlowID        string
	StepID        string
	Attempts      int
	AwaitingReply bool
	LastAskedAt   time.Time
	PendingChain  string
	History       []string
	Ask           Ask

	rumbleFired bool
	pingFired   bool
}

// MatchKind classifies a parsed reply.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchUnknown
	MatchOption
)

// Outcome reports what applying an option did. A chained event key is
// stashed on the state and read back with TakePendingChain.
type Outcome struct {
	Status   Status
	Reason   string // abort reason when Status is ABORTED
	Ended    bool   // flow reached a terminal option
	Advanced bool   // step pointer moved
}

// Engine drives one flow at a time for a session.
type Engine struct {
	cat   *catalog.Catalog
	rng   *rand.Rand
	st    State
	asked *recency.Window[string]

	matchers map[string]*stepMatcher
}

// NewEngine creates an engine over the catalog's flows.
func NewEngine(cat *catalog.Catalog, rng *rand.Rand) *Engine {
	return &Engine{
		cat:      cat,
		rng:      rng,
		asked:    recency.NewWindow[string](askedWindowSize),
		matchers: make(map[string]*stepMatcher),
	}
}

// State returns a copy of the current dialog state.
func (e *Engine) State() State { return e.st }

// Active reports whether a flow is running.
func (e *Engine) Active() bool { return e.st.Active }

// StartFlow begins the flow registered under flowID, aimed at the tagged
// user. An unregistered flow is a programmer error surfaced immediately.
func (e *Engine) StartFlow(flowID, tagged, asker string, now time.Time) error {
	flow, ok := e.cat.Flow(flowID)
	if !ok {
		return fmt.Errorf("qna: no flow registered for %q", flowID)
	}
	e.st = State{
		Active: true,
		FlowID: flow.ID,
		StepID: flow.StartStepID,
		Ask: Ask{
			Status: StatusAsking,
			Asker:  asker,
			Tagged: tagged,
		},
	}
	e.st.History = append(e.st.History, "started:"+flow.ID)
	log.Printf("[QNA] flow start id=%s tagged=%s asker=%s", flow.ID, tagged, asker)
	return nil
}

// AskCurrentQuestion picks a question variant for the current step, avoiding
// the recently asked ones, and returns it with the time it should be sent:
// immediately on the first attempt, after a 6-10s randomized delay on
// re-asks. Status stays ASKING until MarkQuestionCommitted.
func (e *Engine) AskCurrentQuestion(now time.Time) (catalog.Line, time.Time, bool) {
	step, ok := e.currentStep()
	if !ok {
		return catalog.Line{}, time.Time{}, false
	}

	var fresh []catalog.Line
	for _, q := range step.Questions {
		if !e.asked.Contains(q.Text) {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		fresh = step.Questions
	}
	if len(fresh) == 0 {
		return catalog.Line{}, time.Time{}, false
	}

	q := fresh[e.rng.Intn(len(fresh))]
	e.asked.Push(q.Text)

	askAt := now
	if e.st.Attempts > 0 {
		askAt = now.Add(reAskMin + time.Duration(e.rng.Int63n(int64(reAskMax-reAskMin))))
	}
	e.st.Attempts++
	e.st.Ask.Status = StatusAsking
	e.st.Ask.QuestionID = fmt.Sprintf("%s:%s:%d", e.st.FlowID, e.st.StepID, e.st.Attempts)
	e.st.AwaitingReply = false

	q.Text = strings.ReplaceAll(q.Text, "{user}", e.st.Ask.Tagged)
	q.Translation = strings.ReplaceAll(q.Translation, "{user}", e.st.Ask.Tagged)
	return q, askAt, true
}

// MarkQuestionCommitted confirms the question was actually sent, moving the
// ask into AWAITING_REPLY.
func (e *Engine) MarkQuestionCommitted(now time.Time) {
	if !e.st.Active || e.st.Ask.Status != StatusAsking {
		return
	}
	e.st.Ask.Status = StatusAwaitingReply
	e.st.AwaitingReply = true
	e.st.LastAskedAt = now
}

// ParseReply matches free text against the current step's keyword sets.
// The synthetic unknown keywords are checked first, then the real options in
// declaration order; the first keyword substring match wins.
func (e *Engine) ParseReply(text string) (catalog.Option, MatchKind) {
	step, ok := e.currentStep()
	if !ok {
		return catalog.Option{}, MatchNone
	}
	m := e.matcher(e.st.FlowID, step)
	return m.match(text)
}

// ApplyOptionResult advances the state machine for a parsed reply.
func (e *Engine) ApplyOptionResult(opt catalog.Option, kind MatchKind, now time.Time) Outcome {
	if !e.st.Active {
		return Outcome{Status: StatusIdle}
	}
	e.st.AwaitingReply = false

	switch {
	case kind == MatchUnknown || kind == MatchNone:
		e.st.Ask.Status = StatusAborted
		e.st.Ask.AbortReason = AbortUnknownRetry
		if kind == MatchNone {
			e.st.Ask.AbortReason = AbortRetry
		}
		e.st.History = append(e.st.History, "abort:"+e.st.StepID+":"+e.st.Ask.AbortReason)
		// Same step re-asked on the next AskCurrentQuestion call.
		return Outcome{Status: StatusAborted, Reason: e.st.Ask.AbortReason}

	case opt.ChainEventKey != "":
		e.resolve(now, "chain:"+opt.ChainEventKey)
		e.st.PendingChain = opt.ChainEventKey
		return Outcome{Status: StatusResolved, Ended: true}

	case opt.NextStepID != "":
		e.resolve(now, "step:"+e.st.StepID+":"+opt.ID)
		e.st.StepID = opt.NextStepID
		e.st.Attempts = 0
		return Outcome{Status: StatusResolved, Advanced: true}

	case opt.End:
		e.resolve(now, "end:"+opt.ID)
		return Outcome{Status: StatusResolved, Ended: true}

	default:
		e.st.Ask.Status = StatusAborted
		e.st.Ask.AbortReason = AbortRetry
		e.st.History = append(e.st.History, "abort:"+e.st.StepID+":"+AbortRetry)
		return Outcome{Status: StatusAborted, Reason: AbortRetry}
	}
}

func (e *Engine) resolve(now time.Time, note string) {
	e.st.Ask.Status = StatusResolved
	e.st.Ask.ResolvedAt = now
	e.st.History = append(e.st.History, note)
}

// TakePendingChain returns and clears the chained event key, if any.
func (e *Engine) TakePendingChain() string {
	k := e.st.PendingChain
	e.st.PendingChain = ""
	return k
}

// HandleTimeoutPressure returns a one-shot escalation signal while a reply
// is pending: ghost_ping at >=60s, low_rumble at >=40s. Each signal fires
// at most once per flow instance, re-asks included. Empty string means no
// new pressure.
func (e *Engine) HandleTimeoutPressure(now time.Time) string {
	if !e.st.Active || !e.st.AwaitingReply || e.st.LastAskedAt.IsZero() {
		return ""
	}
	elapsed := now.Sub(e.st.LastAskedAt)
	if elapsed >= ghostPingAfter && !e.st.pingFired {
		e.st.pingFired = true
		return PressureGhostPing
	}
	if elapsed >= lowRumbleAfter && !e.st.rumbleFired {
		e.st.rumbleFired = true
		return PressureLowRumble
	}
	return ""
}

// StopFlow records the reason in the flow history and resets the rest of
// the state to its initial value. The finished flow's history stays
// readable until the next StartFlow. This is the only way back to IDLE.
func (e *Engine) StopFlow(reason string) string {
	flowID := e.st.FlowID
	hist := e.st.History
	if flowID != "" {
		hist = append(hist, "stopped:"+reason)
		log.Printf("[QNA] flow stop id=%s reason=%s", flowID, reason)
	}
	e.st = State{History: hist}
	e.st.Ask.Status = StatusIdle
	return flowID
}

func (e *Engine) currentStep() (catalog.Step, bool) {
	flow, ok := e.cat.Flow(e.st.FlowID)
	if !ok {
		return catalog.Step{}, false
	}
	step, ok := flow.Steps[e.st.StepID]
	return step, ok
}

// stepMatcher holds the compiled automaton for one step's keywords.
type stepMatcher struct {
	ac   ahocorasick.AhoCorasick
	step catalog.Step
}

func (e *Engine) matcher(flowID string, step catalog.Step) *stepMatcher {
	key := flowID + ":" + step.ID
	if m, ok := e.matchers[key]; ok {
		return m
	}

	var patterns []string
	seen := make(map[string]bool)
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		patterns = append(patterns, kw)
	}
	for _, kw := range step.Unknown {
		add(kw)
	}
	for _, opt := range step.Options {
		for _, kw := range opt.Keywords {
			add(kw)
		}
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostLongestMatch,
	})
	m := &stepMatcher{ac: builder.Build(patterns), step: step}
	e.matchers[key] = m
	return m
}

// match scans the reply once with the automaton as an any-hit gate, then
// resolves precedence by direct substring checks: unknown keywords first,
// then options in declaration order. The automaton's leftmost-longest
// selection must not decide precedence, since a later option's longer
// keyword would shadow an earlier option's keyword contained in it.
func (m *stepMatcher) match(text string) (catalog.Option, MatchKind) {
	lowered := strings.ToLower(text)
	if len(m.ac.FindAll(lowered)) == 0 {
		return catalog.Option{}, MatchNone
	}

	contains := func(keywords []string) bool {
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lowered, kw) {
				return true
			}
		}
		return false
	}

	if contains(m.step.Unknown) {
		return catalog.Option{}, MatchUnknown
	}
	for _, opt := range m.step.Options {
		if contains(opt.Keywords) {
			return opt, MatchOption
		}
	}
	return catalog.Option{}, MatchNone
}
