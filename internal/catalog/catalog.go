// Package catalog holds the static content registries: line packs per topic,
// scripted event specs, and Q&A flows. Content is loaded once from a
// datastore file; missing entries are seeded with the built-in defaults so
// operators can edit content without recompiling.
package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/keshon/datastore"
)

// Duration is a time.Duration that marshals as a duration string ("8s",
// "1500ms") so the seeded store stays hand-editable. Bare numbers in the
// store are read as milliseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		dur, err := time.ParseDuration(x)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", x, err)
		}
		*d = Duration(dur)
	case float64:
		*d = Duration(time.Duration(x) * time.Millisecond)
	default:
		return fmt.Errorf("duration: unsupported value %v", v)
	}
	return nil
}

// Line is one renderable chat line, optionally with a translation.
type Line struct {
	Text        string `json:"text"`
	Translation string `json:"translation,omitempty"`
}

// Variant groups lines under an id with a tone and persona, so the director
// can rotate ids, tones and personas independently.
type Variant struct {
	ID      string `json:"id"`
	Tone    string `json:"tone"`
	Persona string `json:"persona"`
	Lines   []Line `json:"lines"`
}

// FollowUp is a deferred re-trigger of another event key.
type FollowUp struct {
	Key   string   `json:"key"`
	Delay Duration `json:"delay"`
}

// EventKind distinguishes ordinary story beats from ones that establish
// the exclusive lock mode.
type EventKind string

const (
	KindNormal    EventKind = "normal"
	KindLockStart EventKind = "lock_start"
)

// EventSpec is the scripted definition of one story event key.
type EventSpec struct {
	Key            string     `json:"key"`
	Topic          string     `json:"topic"` // line pack to draw from
	Kind           EventKind  `json:"kind,omitempty"`
	Cooldown       Duration   `json:"cooldown"`
	SharedKey      string     `json:"shared_key,omitempty"` // mutex / shared-cooldown group
	SharedCooldown Duration   `json:"shared_cooldown,omitempty"`
	Sfx            string     `json:"sfx,omitempty"`
	SfxDelay       Duration   `json:"sfx_delay,omitempty"`
	Scene          string     `json:"scene,omitempty"`
	SceneDelay     Duration   `json:"scene_delay,omitempty"`
	FollowUps      []FollowUp `json:"follow_ups,omitempty"`
	MinActiveUsers int        `json:"min_active_users,omitempty"`
	NeedsUnlocked  bool       `json:"needs_unlocked,omitempty"`
	TagsUser       bool       `json:"tags_user,omitempty"` // lines must @mention a user
	FlowID         string     `json:"flow_id,omitempty"`   // Q&A flow started on emit
	MaxWait        Duration   `json:"max_wait,omitempty"`
}

// Option is one keyword-matched answer branch of a Q&A step. Exactly one of
// NextStepID, ChainEventKey or End is meaningful.
type Option struct {
	ID            string   `json:"id"`
	Keywords      []string `json:"keywords"`
	NextStepID    string   `json:"next_step_id,omitempty"`
	ChainEventKey string   `json:"chain_event_key,omitempty"`
	End           bool     `json:"end,omitempty"`
}

// Step is one question of a flow plus its answer branches. Unknown holds the
// synthetic "don't know" keywords checked before the real options.
type Step struct {
	ID        string   `json:"id"`
	Questions []Line   `json:"questions"`
	Unknown   []string `json:"unknown_keywords,omitempty"`
	Options   []Option `json:"options"`
}

// Flow is a static directed graph of steps, keyed by the event that starts it.
type Flow struct {
	ID          string          `json:"id"`
	StartStepID string          `json:"start_step_id"`
	Steps       map[string]Step `json:"steps"`
}

// Catalog is the immutable content registry. Load once at startup, read-only
// afterwards.
type Catalog struct {
	packs  map[string][]Variant
	events map[string]EventSpec
	flows  map[string]Flow

	// Fallback is the safe line emitted when dedup rejects every candidate.
	Fallback Line
}

// Datastore keys for the three registries.
const (
	storePacks  = "packs"
	storeEvents = "events"
	storeFlows  = "flows"
)

// NewDefault returns a catalog with the built-in content only.
func NewDefault() *Catalog {
	return &Catalog{
		packs:    defaultPacks(),
		events:   defaultEvents(),
		flows:    defaultFlows(),
		Fallback: Line{Text: "……", Translation: "..."},
	}
}

// Load opens the datastore file at path, seeds missing registries with the
// defaults, and returns the catalog read from the store.
func Load(path string) (*Catalog, error) {
	ds, err := datastore.New(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	defer ds.Close()

	c := NewDefault()
	if err := loadOrSeed(ds, storePacks, &c.packs); err != nil {
		return nil, err
	}
	if err := loadOrSeed(ds, storeEvents, &c.events); err != nil {
		return nil, err
	}
	if err := loadOrSeed(ds, storeFlows, &c.flows); err != nil {
		return nil, err
	}
	log.Printf("[CATALOG] loaded packs=%d events=%d flows=%d from %s",
		len(c.packs), len(c.events), len(c.flows), path)
	return c, nil
}

// loadOrSeed reads key into dst, writing the current dst value to the store
// first when the key is missing.
func loadOrSeed[T any](ds *datastore.DataStore, key string, dst *T) error {
	raw, exists := ds.Get(key)
	if !exists {
		ds.Add(key, *dst)
		return nil
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal stored %s: %w", key, err)
	}
	var out T
	if err := json.Unmarshal(jsonData, &out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	*dst = out
	return nil
}

// Pack returns the line variants for a topic key. A missing pack is a valid
// no-content outcome, not an error.
func (c *Catalog) Pack(topic string) []Variant {
	return c.packs[topic]
}

// Event returns the spec for an event key.
func (c *Catalog) Event(key string) (EventSpec, bool) {
	e, ok := c.events[key]
	return e, ok
}

// Flow returns the Q&A flow registered under id.
func (c *Catalog) Flow(id string) (Flow, bool) {
	f, ok := c.flows[id]
	return f, ok
}

// EventKeys returns all registered event keys (for the demo and diagnostics).
func (c *Catalog) EventKeys() []string {
	keys := make([]string, 0, len(c.events))
	for k := range c.events {
		keys = append(keys, k)
	}
	return keys
}
