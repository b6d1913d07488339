package director

import "time"

// DefaultMaxWait bounds how long a blocked trigger waits for a retry.
const DefaultMaxWait = 5 * time.Second

// QueueItem is a blocked trigger deferred for replay. Items past ExpiresAt
// are silently dropped; graceful degradation under contention, not an error.
type QueueItem struct {
	Key        string
	Ctx        TriggerContext
	EnqueuedAt time.Time
	ExpiresAt  time.Time
	Reason     BlockReason
}

// RetryQueue holds blocked triggers awaiting one replay pass.
type RetryQueue struct {
	items   []QueueItem
	expired int
}

// NewRetryQueue returns an empty queue.
func NewRetryQueue() *RetryQueue {
	return &RetryQueue{}
}

// Push enqueues a blocked trigger.
func (q *RetryQueue) Push(item QueueItem) {
	q.items = append(q.items, item)
}

// TakeLive removes and returns all items still within their deadline at now.
// Expired items are dropped and counted.
func (q *RetryQueue) TakeLive(now time.Time) []QueueItem {
	var live []QueueItem
	for _, it := range q.items {
		if now.After(it.ExpiresAt) {
			q.expired++
			continue
		}
		live = append(live, it)
	}
	q.items = nil
	return live
}

// Len returns the number of queued items.
func (q *RetryQueue) Len() int { return len(q.items) }

// ExpiredCount returns how many items have been dropped past deadline.
func (q *RetryQueue) ExpiredCount() int { return q.expired }

// Reset drops everything and zeroes counters.
func (q *RetryQueue) Reset() {
	q.items = nil
	q.expired = 0
}
