package director

import (
	"strings"

	"ghoststream/internal/catalog"
	"ghoststream/internal/recency"
	"ghoststream/internal/textsim"
)

// pickCandidate is one (variant, line) pair still in the running.
type pickCandidate struct {
	variant catalog.Variant
	line    catalog.Line
}

// filterVariants drops variants whose id, tone or persona sits in its recency
// window. Filters relax one by one when they empty the pool, so a small pack
// still yields content (full-pool fallback).
func filterVariants(pool []catalog.Variant, idWin, toneWin, personaWin *recency.Window[string]) []catalog.Variant {
	type filter func(catalog.Variant) bool
	filters := []filter{
		func(v catalog.Variant) bool { return !idWin.Contains(v.ID) },
		func(v catalog.Variant) bool { return !toneWin.Contains(v.Tone) },
		func(v catalog.Variant) bool { return !personaWin.Contains(v.Persona) },
	}
	out := pool
	for _, f := range filters {
		var kept []catalog.Variant
		for _, v := range out {
			if f(v) {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue // this filter would starve the pool; skip it
		}
		out = kept
	}
	return out
}

// pickLine chooses one line from the filtered pool, running every candidate
// through the dedup engine against the topic's viewport. Falls back to the
// catalog's safe line when the retry budget runs out, so selection always
// terminates.
func (d *Director) pickLine(pool []catalog.Variant, topic string) (pickCandidate, bool) {
	viewport := d.textViewport(topic).Items()
	var cands []pickCandidate
	for _, v := range pool {
		for _, ln := range v.Lines {
			cands = append(cands, pickCandidate{variant: v, line: ln})
		}
	}
	if len(cands) > 0 {
		for i := 0; i < d.cfg.PickTries; i++ {
			c := cands[d.rng.Intn(len(cands))]
			if !textsim.TooSimilar(c.line.Text, viewport) {
				return c, true
			}
		}
	}
	return pickCandidate{line: d.cat.Fallback}, false
}

// tagUser substitutes the {user} placeholder. Returns false when the line
// needs a tag but no target is available.
func tagUser(line catalog.Line, target string) (catalog.Line, bool) {
	if !strings.Contains(line.Text, "{user}") {
		return line, true
	}
	if target == "" {
		return line, false
	}
	line.Text = strings.ReplaceAll(line.Text, "{user}", target)
	line.Translation = strings.ReplaceAll(line.Translation, "{user}", target)
	return line, true
}

// hasUserTag reports whether any line of the variant tags a user.
func hasUserTag(v catalog.Variant) bool {
	for _, ln := range v.Lines {
		if strings.Contains(ln.Text, "{user}") {
			return true
		}
	}
	return false
}
