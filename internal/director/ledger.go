package director

import "time"

// BlockReason names a non-fatal outcome of a trigger attempt. These are
// values, never errors; expected contention must not throw.
type BlockReason string

const (
	ReasonNone                  BlockReason = ""
	ReasonBlockedByCooldown     BlockReason = "blocked_by_cooldown"
	ReasonBlockedBySharedCD     BlockReason = "blocked_by_shared_cooldown"
	ReasonBlockedBySfxCD        BlockReason = "blocked_by_sfx_cooldown"
	ReasonBlockedByLock         BlockReason = "blocked_by_lock"
	ReasonBlockedByActiveUsers  BlockReason = "blocked_by_active_users"
	ReasonMissingLineVariant    BlockReason = "missing_line_variant"
	ReasonActiveUserMissing     BlockReason = "active_user_missing"
	ReasonStarterLineNotTagged  BlockReason = "starter_line_not_tagged"
	ReasonSendFailed            BlockReason = "send_failed"
	ReasonUnknownRetry          BlockReason = "unknown_retry"
	ReasonQueueExpired          BlockReason = "queue_expired"
)

// Ledger maps a cooldown key to the next time it may fire. Mutex groups are
// modeled as a shared key every group member commits to, which yields
// "at most one active member per shared window" without separate locking.
// Callers serialize access.
type Ledger struct {
	until map[string]time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{until: make(map[string]time.Time)}
}

// Blocked reports whether key may not fire at now.
func (l *Ledger) Blocked(key string, now time.Time) bool {
	return l.until[key].After(now)
}

// Commit records a firing: key may not fire again before now+cooldown.
// A zero cooldown is a no-op.
func (l *Ledger) Commit(key string, now time.Time, cooldown time.Duration) {
	if cooldown <= 0 {
		return
	}
	l.until[key] = now.Add(cooldown)
}

// Remaining returns how long until key unblocks (zero if free).
func (l *Ledger) Remaining(key string, now time.Time) time.Duration {
	u, ok := l.until[key]
	if !ok || !u.After(now) {
		return 0
	}
	return u.Sub(now)
}

// Reset clears all cooldowns.
func (l *Ledger) Reset() {
	l.until = make(map[string]time.Time)
}
