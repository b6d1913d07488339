// Package timeline is a time-ordered task queue for deferred engine actions.
// Tasks are plain data, not captured closures: the session interprets them
// when they come due, so pending work can be inspected, cancelled by owner,
// and replayed deterministically in tests. The queue never sleeps; the host
// drains it with an externally supplied clock.
package timeline

import (
	"container/heap"
	"time"
)

// Kind tells the drainer what a due task means.
type Kind string

const (
	KindTrigger Kind = "trigger"     // re-enter the event director with Key
	KindAsk     Kind = "ask"         // Q&A re-ask for flow Key
	KindSfx     Kind = "sfx"         // delayed sound effect Key
	KindScene   Kind = "scene"       // delayed scene switch to Key
)

// Task is one scheduled future action.
type Task struct {
	FireAt time.Time
	Owner  string // cancellation tag, e.g. "event:whisper_intro" or "qna:voice_confirm_flow"
	Kind   Kind
	Key    string
	Reason string
	User   string // optional target user carried into the action

	seq int64 // tie-break for equal FireAt, preserves schedule order
}

// Timeline is a min-heap keyed by FireAt. Not safe for concurrent use;
// the session serializes access.
type Timeline struct {
	h   taskHeap
	seq int64
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Schedule adds a task. Zero FireAt fires on the next drain.
func (t *Timeline) Schedule(task Task) {
	t.seq++
	task.seq = t.seq
	heap.Push(&t.h, task)
}

// DrainDue pops and returns every task with FireAt <= now, in fire order.
func (t *Timeline) DrainDue(now time.Time) []Task {
	var due []Task
	for t.h.Len() > 0 && !t.h[0].FireAt.After(now) {
		due = append(due, heap.Pop(&t.h).(Task))
	}
	return due
}

// CancelOwner removes all pending tasks with the given owner tag and
// returns how many were dropped.
func (t *Timeline) CancelOwner(owner string) int {
	var kept taskHeap
	dropped := 0
	for _, task := range t.h {
		if task.Owner == owner {
			dropped++
			continue
		}
		kept = append(kept, task)
	}
	heap.Init(&kept)
	t.h = kept
	return dropped
}

// Len returns the number of pending tasks.
func (t *Timeline) Len() int { return t.h.Len() }

// Pending returns a copy of all pending tasks, soonest first.
func (t *Timeline) Pending() []Task {
	out := make([]Task, len(t.h))
	copy(out, t.h)
	sortTasks(out)
	return out
}

// Reset drops everything.
func (t *Timeline) Reset() { t.h = nil }

type taskHeap []Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].FireAt.Equal(h[j].FireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].FireAt.Before(h[j].FireAt)
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(Task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

func sortTasks(ts []Task) {
	// insertion sort; pending sets are small
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0; j-- {
			if taskHeap(ts).Less(j, j-1) {
				ts[j], ts[j-1] = ts[j-1], ts[j]
			} else {
				break
			}
		}
	}
}
