package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces, err := Split(tt.text)
			require.NoError(t, err)
			assert.Empty(t, pieces)
		})
	}
}

func TestSplit_ShortInputIsSingleChunk(t *testing.T) {
	pieces, err := Split("Returns are accepted within 30 days of delivery.")
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, "Returns are accepted within 30 days of delivery.", pieces[0].Content)
	assert.Equal(t, 0, pieces[0].Ordinal)
}

func TestSplit_NormalizesWhitespace(t *testing.T) {
	pieces, err := Split("Hello \n\t  world.   Second\t\tsentence.")
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Equal(t, "Hello world. Second sentence.", pieces[0].Content)
}

func TestSplit_InvalidOptions(t *testing.T) {
	_, err := Split("text", WithTargetTokens(0))
	assert.ErrorIs(t, err, ErrInvalidTargetTokens)

	_, err = Split("text", WithOverlapTokens(-1))
	assert.ErrorIs(t, err, ErrInvalidOverlapTokens)

	_, err = Split("text", WithTargetTokens(10), WithOverlapTokens(10))
	assert.ErrorIs(t, err, ErrOverlapTooLarge)

	_, err = Split("text", WithTargetTokens(10), WithOverlapTokens(20))
	assert.ErrorIs(t, err, ErrOverlapTooLarge)
}

func TestSplit_PrefersSentenceBoundary(t *testing.T) {
	// Window is 10 tokens * 4 = 40 chars. The sentence end sits inside
	// the last 20% of the window, so the cut lands right after it.
	text := "Aaaa bbbb cccc dddd eeee ffff gggg. Here comes the next sentence with more."
	pieces, err := Split(text, WithTargetTokens(10), WithOverlapTokens(0))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(pieces), 2)
	assert.Equal(t, "Aaaa bbbb cccc dddd eeee ffff gggg.", pieces[0].Content)
	assert.True(t, strings.HasPrefix(pieces[1].Content, "Here"))
}

func TestSplit_FallsBackToWordBoundary(t *testing.T) {
	// No sentence ends at all: the cut falls on the last space in the
	// window, so no word is split in half.
	text := strings.Repeat("alpha beta gamma delta ", 20)
	pieces, err := Split(text, WithTargetTokens(10), WithOverlapTokens(0))
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)
	for _, p := range pieces {
		for _, word := range strings.Fields(p.Content) {
			assert.Contains(t, []string{"alpha", "beta", "gamma", "delta"}, word)
		}
	}
}

func TestSplit_HardCutsUnbrokenText(t *testing.T) {
	// One giant word forces hard cuts at the window edge.
	text := strings.Repeat("x", 200)
	pieces, err := Split(text, WithTargetTokens(10), WithOverlapTokens(0))
	require.NoError(t, err)
	require.Equal(t, 5, len(pieces))
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p.Content), 40)
		assert.NotEmpty(t, p.Content)
	}
}

func TestSplit_OrdinalsContiguous(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	pieces, err := Split(text, WithTargetTokens(20), WithOverlapTokens(5))
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)
	for i, p := range pieces {
		assert.Equal(t, i, p.Ordinal)
		assert.NotEmpty(t, p.Content)
	}
}

func TestSplit_CoverageWithoutOverlap(t *testing.T) {
	// With zero overlap and word-boundary cuts, joining the pieces
	// reconstructs the normalized input exactly.
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)
	normalized := strings.Join(strings.Fields(text), " ")

	pieces, err := Split(text, WithTargetTokens(20), WithOverlapTokens(0))
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	contents := make([]string, len(pieces))
	for i, p := range pieces {
		contents[i] = p.Content
	}
	assert.Equal(t, normalized, strings.Join(contents, " "))
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Sentences vary in length. Some are short. Others ramble on for quite a while before ending. ", 30)

	first, err := Split(text)
	require.NoError(t, err)
	second, err := Split(text)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSplit_TerminatesOnPathologicalInput(t *testing.T) {
	// Dense punctuation with no qualifying boundaries must still finish.
	text := strings.Repeat("a.b.c.d ", 500)
	pieces, err := Split(text, WithTargetTokens(10), WithOverlapTokens(9))
	require.NoError(t, err)
	assert.NotEmpty(t, pieces)
	for i, p := range pieces {
		assert.Equal(t, i, p.Ordinal)
	}
}

func TestSplit_ThreeThousandCharScenario(t *testing.T) {
	// A 3,000-character plain-text source with the default settings
	// splits into multiple overlapping chunks of at most 2,000
	// characters each.
	sentence := "The quick brown fox jumps over the lazy dog. "
	text := strings.Repeat(sentence, 67) // ~3,000 chars

	pieces, err := Split(text)
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	for i, p := range pieces {
		assert.Equal(t, i, p.Ordinal)
		assert.LessOrEqual(t, len(p.Content), 2000)
		assert.NotEmpty(t, p.Content)
	}
}
