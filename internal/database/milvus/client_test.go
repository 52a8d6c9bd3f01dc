package milvus

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateBytesRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncateBytes("short", 100))

	// "é" is two bytes; a cut landing inside it backs up to the rune start.
	out := truncateBytes("ééééé", 5)
	assert.Equal(t, "éé", out)
	assert.True(t, strings.HasPrefix("ééééé", out))

	long := strings.Repeat("a", 10)
	assert.Equal(t, "aaaa", truncateBytes(long, 4))
}
