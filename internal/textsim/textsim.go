// Package textsim decides whether a candidate chat line is too close to
// recently emitted ones. Four checks run in order: exact normalized match,
// edit-distance similarity, substring containment, and n-gram overlap.
// All comparisons happen on normalized text (no emoji, no punctuation,
// collapsed whitespace, lowercased).
package textsim

import (
	"crypto/sha1"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// Thresholds above which a candidate is rejected.
const (
	SimilarityMax  = 0.8  // levenshtein ratio
	ContainSpanMax = 0.7  // shorter/longer length ratio when one contains the other
	GramOverlapMax = 0.35 // 3-gram and 4-gram set overlap
)

// DefaultPickTries bounds the dedup retry loop so selection always terminates.
const DefaultPickTries = 32

// Normalize lowercases, drops emoji and other symbol runes, strips punctuation
// and collapses whitespace. Comparison and hashing both start here.
func Normalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		r = unicode.ToLower(r)
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			out.WriteRune(r)
		case unicode.IsSpace(r):
			out.WriteRune(' ')
		default:
			// punctuation, emoji, symbols -> word boundary
			out.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(out.String()), " ")
}

// Hash returns a stable identifier for a line's normalized form.
func Hash(s string) string {
	sum := sha1.Sum([]byte(Normalize(s)))
	return fmt.Sprintf("%x", sum)
}

// Similarity returns 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
// Identical strings score 1, fully different strings score 0.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1
	}
	max := la
	if lb > max {
		max = lb
	}
	return 1 - float64(levenshtein(ra, rb))/float64(max)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// containedRatio returns shorter/longer length ratio if one normalized string
// contains the other, else 0.
func containedRatio(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	short, long := a, b
	ls, ll := la, lb
	if la > lb {
		short, long = b, a
		ls, ll = lb, la
	}
	if !strings.Contains(long, short) {
		return 0
	}
	return float64(ls) / float64(ll)
}

// ExtractGrams returns the set of rune n-grams of s.
func ExtractGrams(s string, n int) map[string]struct{} {
	runes := []rune(s)
	grams := make(map[string]struct{})
	if len(runes) < n {
		return grams
	}
	for i := 0; i+n <= len(runes); i++ {
		grams[string(runes[i:i+n])] = struct{}{}
	}
	return grams
}

// gramOverlap returns |A∩B| / min(|A|,|B|) for rune n-grams.
func gramOverlap(a, b string, n int) float64 {
	ga, gb := ExtractGrams(a, n), ExtractGrams(b, n)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}
	small, big := ga, gb
	if len(gb) < len(ga) {
		small, big = gb, ga
	}
	var shared int
	for g := range small {
		if _, ok := big[g]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// TooSimilar reports whether candidate clashes with any viewport entry.
// Inputs are raw strings; normalization happens inside.
func TooSimilar(candidate string, viewport []string) bool {
	nc := Normalize(candidate)
	for _, v := range viewport {
		nv := Normalize(v)
		if nc == nv {
			return true
		}
		if Similarity(nc, nv) > SimilarityMax {
			return true
		}
		if containedRatio(nc, nv) > ContainSpanMax {
			return true
		}
		if gramOverlap(nc, nv, 3) > GramOverlapMax || gramOverlap(nc, nv, 4) > GramOverlapMax {
			return true
		}
	}
	return false
}

// Pick draws random candidates until one clears the viewport or tries run out,
// then returns fallback. The second result is false only for the fallback path.
func Pick(rng *rand.Rand, candidates []string, viewport []string, tries int, fallback string) (string, bool) {
	if tries <= 0 {
		tries = DefaultPickTries
	}
	if len(candidates) > 0 {
		for i := 0; i < tries; i++ {
			c := candidates[rng.Intn(len(candidates))]
			if !TooSimilar(c, viewport) {
				return c, true
			}
		}
	}
	return fallback, false
}
