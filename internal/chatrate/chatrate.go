// Package chatrate turns the director's lock speed multiplier into a ready
// per-user pacing signal for the host's chat renderer, built on
// golang.org/x/time/rate. One limiter per user; the effective limit is the
// base rate scaled by the multiplier, so non-target users run at half speed
// while the lock is held.
package chatrate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer hands out per-user send permissions. Safe for concurrent use.
type Pacer struct {
	mu    sync.Mutex
	base  rate.Limit
	burst int
	users map[string]*rate.Limiter
	speed func(user string) float64 // usually LockState.SpeedMultiplier
}

// NewPacer creates a pacer. base is messages per second at full speed;
// speed may be nil (everyone runs at 1x).
func NewPacer(base rate.Limit, burst int, speed func(user string) float64) *Pacer {
	if base <= 0 {
		base = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Pacer{
		base:  base,
		burst: burst,
		users: make(map[string]*rate.Limiter),
		speed: speed,
	}
}

// Allow reports whether user may send a chat line at now, consuming a token
// if so. The limit is re-derived from the current speed multiplier on every
// call so lock transitions take effect immediately.
func (p *Pacer) Allow(user string, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	lim, ok := p.users[user]
	if !ok {
		lim = rate.NewLimiter(p.base, p.burst)
		p.users[user] = lim
	}

	mult := 1.0
	if p.speed != nil {
		mult = p.speed(user)
	}
	want := rate.Limit(float64(p.base) * mult)
	if lim.Limit() != want {
		lim.SetLimitAt(now, want)
	}
	return lim.AllowN(now, 1)
}

// Limit returns the effective limit user runs at right now.
func (p *Pacer) Limit(user string) rate.Limit {
	mult := 1.0
	if p.speed != nil {
		mult = p.speed(user)
	}
	return rate.Limit(float64(p.base) * mult)
}

// Reset drops all per-user limiters.
func (p *Pacer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = make(map[string]*rate.Limiter)
}
