package textsim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello world", Normalize("  Hello,   WORLD!!  "))
	assert.Equal(t, "什麼 聲音", Normalize("什麼……聲音？？"))
	assert.Equal(t, "door 2", Normalize("door#2 🚪"))
	assert.Equal(t, "", Normalize("!!! ... ???"))
}

func TestHashStableAcrossFormatting(t *testing.T) {
	assert.Equal(t, Hash("Hello, world!"), Hash("hello   WORLD"))
	assert.NotEqual(t, Hash("hello world"), Hash("hello there"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("same", "same"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 0.0, Similarity("abcd", "wxyz"))
	// one edit over five runes
	assert.InDelta(t, 0.8, Similarity("ghost", "ghast"), 0.001)
}

func TestContainedRatio(t *testing.T) {
	assert.InDelta(t, 0.5, containedRatio("door", "the door"), 0.001)
	assert.Equal(t, 0.0, containedRatio("door", "window pane"))
	assert.Equal(t, 0.0, containedRatio("", "anything"))
}

func TestExtractGrams(t *testing.T) {
	grams := ExtractGrams("abcd", 3)
	assert.Len(t, grams, 2)
	assert.Contains(t, grams, "abc")
	assert.Contains(t, grams, "bcd")
	assert.Empty(t, ExtractGrams("ab", 3))
}

func TestTooSimilar(t *testing.T) {
	viewport := []string{"did you hear that knock", "誰在門外面啊"}

	// exact after normalization
	assert.True(t, TooSimilar("Did you HEAR that knock?!", viewport))
	// near-identical edit distance
	assert.True(t, TooSimilar("did you hear that knocks", viewport))
	// contained span
	assert.True(t, TooSimilar("you hear that knock", viewport))
	// clearly different
	assert.False(t, TooSimilar("the stream is lagging again", viewport))
	assert.False(t, TooSimilar("主播今天吃了什麼", viewport))
}

func TestPickAvoidsViewport(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []string{"what was that sound", "the chat is frozen", "did the lights flicker"}
	viewport := []string{"what was that sound"}

	for i := 0; i < 50; i++ {
		got, ok := Pick(rng, candidates, viewport, 0, "fallback")
		require.True(t, ok)
		assert.NotEqual(t, "what was that sound", got)
	}
}

func TestPickFallsBackWhenExhausted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	candidates := []string{"only line"}
	viewport := []string{"only line"}

	got, ok := Pick(rng, candidates, viewport, 4, "fallback")
	assert.False(t, ok)
	assert.Equal(t, "fallback", got)

	got, ok = Pick(rng, nil, nil, 4, "fallback")
	assert.False(t, ok)
	assert.Equal(t, "fallback", got)
}
