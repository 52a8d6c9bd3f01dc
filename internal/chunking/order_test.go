package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govreporter/internal/models"
)

func orderTestConfig() Config {
	return Config{MinTokens: 15, TargetTokens: 25, MaxTokens: 50, OverlapRatio: 0.1}
}

const minimalOrder = `Executive Order 14100

By the authority vested in me as President by the Constitution and the laws of the United States of America, it is hereby ordered:

Sec. 1. Purpose. ` + "This order establishes a coordinated Federal response to the matter at hand, consistent with applicable law and subject to the availability of appropriations for these purposes." + `

Sec. 2. Policy. ` + "It is the policy of the United States to promote the orderly administration of the programs described in this order across all executive departments and agencies of the Federal Government." + `

THE WHITE HOUSE,
January 27, 2021.

[FR Doc. 2021-02177 Filed 1-27-21; 8:45 am]`

func TestOrderChunkerHeaderSectionsTail(t *testing.T) {
	c, err := NewOrderChunker(orderTestConfig(), wordCounter{})
	require.NoError(t, err)

	chunks := c.Chunk(minimalOrder)
	require.NotEmpty(t, chunks)

	var headers, tails int
	titles := map[string]bool{}
	for i, ch := range chunks {
		require.NotNil(t, ch.Order)
		assert.Equal(t, i, ch.Index)
		switch ch.Order.ChunkType {
		case models.OrderHeader:
			headers++
			assert.Empty(t, ch.Order.SectionTitle)
		case models.OrderSection:
			titles[ch.Order.SectionTitle] = true
		case models.OrderTail:
			tails++
		}
	}
	assert.Equal(t, 1, headers, "expected exactly one header chunk")
	assert.Equal(t, 1, tails, "expected exactly one tail chunk")
	assert.True(t, titles["Sec. 1. Purpose."], "missing Sec. 1 title, got %v", titles)
	assert.True(t, titles["Sec. 2. Policy."], "missing Sec. 2 title, got %v", titles)
}

func TestOrderChunkerOneChunkPerShortSection(t *testing.T) {
	c, err := NewOrderChunker(orderTestConfig(), wordCounter{})
	require.NoError(t, err)

	chunks := c.Chunk(minimalOrder)
	perTitle := map[string]int{}
	for _, ch := range chunks {
		if ch.Order.ChunkType == models.OrderSection {
			perTitle[ch.Order.SectionTitle]++
		}
	}
	assert.Equal(t, 1, perTitle["Sec. 1. Purpose."])
	assert.Equal(t, 1, perTitle["Sec. 2. Policy."])
}

func TestOrderChunkerSubsectionLabels(t *testing.T) {
	c, err := NewOrderChunker(orderTestConfig(), wordCounter{})
	require.NoError(t, err)

	text := `It is hereby ordered:

Sec. 2. Implementation. ` + paragraph("lead", 20) + `

(a) ` + paragraph("suba", 30) + `

(b) ` + paragraph("subb", 30)

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	labels := map[string]bool{}
	for _, ch := range chunks {
		if ch.Order.ChunkType == models.OrderSection {
			labels[ch.Order.SubsectionLabel] = true
		}
	}
	assert.True(t, labels["Sec. 2(a)"] || labels["Sec. 2(b)"],
		"expected a lettered subsection label, got %v", labels)
}

func TestOrderChunkerNoSections(t *testing.T) {
	c, err := NewOrderChunker(orderTestConfig(), wordCounter{})
	require.NoError(t, err)

	chunks := c.Chunk(paragraph("free", 30))
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, models.OrderHeader, ch.Order.ChunkType)
		assert.Empty(t, ch.Order.SectionTitle)
	}
}

func TestOrderChunkerEmptyInput(t *testing.T) {
	c, err := NewOrderChunker(orderTestConfig(), wordCounter{})
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("\n \n"))
}

func TestOrderChunkerOverlapStaysInsideSection(t *testing.T) {
	cfg := orderTestConfig()
	c, err := NewOrderChunker(cfg, wordCounter{})
	require.NoError(t, err)

	text := "Sec. 1. First. " + paragraph("one", 40) + "\n\nSec. 2. Second. " + paragraph("two", 40)
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	// No chunk mixes words from both sections.
	for _, ch := range chunks {
		hasOne := strings.Contains(ch.Text, "one0")
		hasTwo := strings.Contains(ch.Text, "two0")
		assert.False(t, hasOne && hasTwo, "chunk crosses section boundary: %q", ch.Text)
	}
}
