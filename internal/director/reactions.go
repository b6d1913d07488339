package director

import (
	"log"
	"time"
)

// Reaction window tuning. Duration and gaps are randomized per window; gap
// bounds tighten as intensity rises so bursts feel more frantic.
const (
	reactionBasePending = 4
	reactionMinDuration = 10 * time.Second
	reactionMaxDuration = 12 * time.Second
	reactionBaseMinGap  = 600 * time.Millisecond
	reactionBaseMaxGap  = 2200 * time.Millisecond
	reactionGapMinStep  = 150 * time.Millisecond
	reactionGapMaxStep  = 400 * time.Millisecond
)

// ReactionWindow is an ephemeral timed burst of reaction lines. Created per
// stimulus, consumed by ticks, self-destructs on exhaustion or expiry.
// Pending never goes negative and only decreases.
type ReactionWindow struct {
	Type       string // line pack topic, e.g. "scene_reaction"
	StartAt    time.Time
	EndAt      time.Time
	Pending    int
	MinGap     time.Duration
	MaxGap     time.Duration
	NextEmitAt time.Time
}

// SpawnReactionWindow opens a burst window for a qualifying stimulus.
// Multiple windows may be live at once; each runs independently.
func (d *Director) SpawnReactionWindow(topic string, now time.Time) *ReactionWindow {
	intensity := d.TensionTier()
	pending := reactionBasePending + d.rng.Intn(reactionBasePending+1+intensity)
	duration := reactionMinDuration +
		time.Duration(d.rng.Int63n(int64(reactionMaxDuration-reactionMinDuration)))

	minGap := reactionBaseMinGap - time.Duration(intensity)*reactionGapMinStep
	maxGap := reactionBaseMaxGap - time.Duration(intensity)*reactionGapMaxStep

	w := &ReactionWindow{
		Type:       topic,
		StartAt:    now,
		EndAt:      now.Add(duration),
		Pending:    pending,
		MinGap:     minGap,
		MaxGap:     maxGap,
		NextEmitAt: now.Add(d.randGap(minGap, maxGap)),
	}
	d.reactions = append(d.reactions, w)
	log.Printf("[DIRECTOR] reaction window topic=%s pending=%d intensity=%d until=%s",
		topic, pending, intensity, w.EndAt.Format(time.RFC3339))
	return w
}

// tickReactions drops dead windows and emits one line per due window.
func (d *Director) tickReactions(now time.Time) {
	var live []*ReactionWindow
	for _, w := range d.reactions {
		if w.Pending <= 0 || now.After(w.EndAt) {
			continue
		}
		if !now.Before(w.NextEmitAt) {
			d.emitReaction(w, now)
		}
		if w.Pending > 0 && !now.After(w.EndAt) {
			live = append(live, w)
		}
	}
	d.reactions = live
}

// emitReaction publishes one reaction line through the dedup engine and
// advances the window by a freshly randomized gap.
func (d *Director) emitReaction(w *ReactionWindow, now time.Time) {
	pool := d.cat.Pack(w.Type)
	if len(pool) > 0 {
		pool = filterVariants(pool, d.idViewport("reaction:"+w.Type), d.toneWin, d.personaWin)
		cand, fresh := d.pickLine(pool, w.Type)
		if fresh {
			d.textViewport(w.Type).Push(cand.line.Text)
			d.idViewport("reaction:" + w.Type).Push(cand.variant.ID)
			d.toneWin.Push(cand.variant.Tone)
			d.personaWin.Push(cand.variant.Persona)
		}
		d.out = append(d.out, ChatLine{Type: w.Type, Text: cand.line.Text, Translation: cand.line.Translation})
	}
	w.Pending--
	w.NextEmitAt = now.Add(d.randGap(w.MinGap, w.MaxGap))
}

func (d *Director) randGap(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(d.rng.Int63n(int64(max-min)))
}

// LiveReactionWindows returns copies of the currently live windows.
func (d *Director) LiveReactionWindows() []ReactionWindow {
	out := make([]ReactionWindow, 0, len(d.reactions))
	for _, w := range d.reactions {
		out = append(out, *w)
	}
	return out
}
