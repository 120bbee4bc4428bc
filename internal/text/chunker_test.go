package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTranscript_Empty(t *testing.T) {
	assert.Nil(t, ChunkTranscript("", 100, 10))
	assert.Nil(t, ChunkTranscript("   \n\n  ", 100, 10))
}

func TestChunkTranscript_ShortReturnsSingleChunk(t *testing.T) {
	chunks := ChunkTranscript("A short recording.", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short recording.", chunks[0])
}

func TestChunkTranscript_RespectsMaxChars(t *testing.T) {
	transcript := strings.Repeat("This is one sentence of the meeting. ", 50)
	chunks := ChunkTranscript(transcript, 200, 0)
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, len(c), 200, "chunk %d exceeds max", i)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkTranscript_PrefersSentenceBoundaries(t *testing.T) {
	transcript := "First point discussed. Second point discussed. Third point discussed."
	chunks := ChunkTranscript(transcript, 30, 0)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.True(t, strings.HasSuffix(c, "."), "chunk should end at a sentence boundary: %q", c)
	}
}

func TestChunkTranscript_OverlapCarriesContext(t *testing.T) {
	transcript := strings.Repeat("Alpha beta gamma delta epsilon. ", 30)
	chunks := ChunkTranscript(transcript, 150, 30)
	require.Greater(t, len(chunks), 1)

	// The head of each later chunk repeats the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if len(head) > 30 {
			head = head[:30]
		}
		assert.True(t, strings.Contains(chunks[i-1], strings.TrimSpace(head[:10])),
			"chunk %d should overlap with previous", i)
	}
}

func TestChunkTranscript_HardSplitsOversizedSentence(t *testing.T) {
	transcript := strings.Repeat("x", 500)
	chunks := ChunkTranscript(transcript, 100, 0)
	require.GreaterOrEqual(t, len(chunks), 5)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 100)
	}
}
