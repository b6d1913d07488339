package director

import "strings"

// reservedIdentities never count as taggable viewers.
var reservedIdentities = map[string]bool{
	"system":   true,
	"director": true,
	"stream":   true,
}

const rosterLimit = 64

// Roster derives the set of valid @mention targets from chat history:
// every join and authored message adds its user, order of first appearance
// preserved, reserved system identities excluded, size bounded.
type Roster struct {
	order []string
	seen  map[string]bool
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{seen: make(map[string]bool)}
}

// Note records that user appeared in chat. Blank and reserved names are ignored.
func (r *Roster) Note(user string) {
	user = strings.TrimSpace(user)
	if user == "" || reservedIdentities[strings.ToLower(user)] || r.seen[user] {
		return
	}
	r.seen[user] = true
	r.order = append(r.order, user)
	if len(r.order) > rosterLimit {
		drop := r.order[0]
		r.order = r.order[1:]
		delete(r.seen, drop)
	}
}

// Has reports whether user is a known active viewer.
func (r *Roster) Has(user string) bool { return r.seen[user] }

// List returns active users in first-appearance order.
func (r *Roster) List() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of active users.
func (r *Roster) Count() int { return len(r.order) }

// Reset empties the roster.
func (r *Roster) Reset() {
	r.order = nil
	r.seen = make(map[string]bool)
}
