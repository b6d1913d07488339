package director

import "time"

// LockState is the global exclusive mode: while locked, only the target's
// replies run at full speed. Once a target is set it can only be cleared by
// a reply from exactly that target (or a full reset).
type LockState struct {
	Locked    bool
	Target    string
	StartedAt time.Time
}

// lockedSpeed is the chat-rate multiplier applied to everyone but the target.
const lockedSpeed = 0.5

// Lock enters exclusive mode aimed at target.
func (l *LockState) Lock(target string, now time.Time) {
	l.Locked = true
	l.Target = target
	l.StartedAt = now
}

// UnlockByReply clears the lock only when user exactly matches the target.
// Returns true if the lock was cleared.
func (l *LockState) UnlockByReply(user string) bool {
	if !l.Locked || user != l.Target {
		return false
	}
	*l = LockState{}
	return true
}

// SpeedMultiplier returns the chat-rate factor for user: 1 when unlocked or
// when user is the lock target, 0.5 otherwise.
func (l *LockState) SpeedMultiplier(user string) float64 {
	if !l.Locked || user == l.Target {
		return 1
	}
	return lockedSpeed
}
