// Package recency provides a bounded FIFO of recently used identifiers.
// Pushing past capacity evicts the oldest entry, so the window length never
// exceeds its configured capacity.
package recency

// Window is a fixed-capacity FIFO. Not safe for concurrent use; callers
// serialize access (one logical mutator per session).
type Window[T comparable] struct {
	items []T
	cap   int
}

// NewWindow creates a window. Capacity below 1 is clamped to 1.
func NewWindow[T comparable](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{cap: capacity}
}

// Push appends v, evicting the oldest entry once capacity is exceeded.
func (w *Window[T]) Push(v T) {
	w.items = append(w.items, v)
	if len(w.items) > w.cap {
		w.items = w.items[len(w.items)-w.cap:]
	}
}

// Contains reports whether v is currently in the window.
func (w *Window[T]) Contains(v T) bool {
	for _, it := range w.items {
		if it == v {
			return true
		}
	}
	return false
}

// Items returns a copy of the window contents, oldest first.
func (w *Window[T]) Items() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Len returns the current number of entries.
func (w *Window[T]) Len() int { return len(w.items) }

// Cap returns the configured capacity.
func (w *Window[T]) Cap() int { return w.cap }

// Reset empties the window.
func (w *Window[T]) Reset() { w.items = nil }
