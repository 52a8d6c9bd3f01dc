package llm

import (
	"testing"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIRequestShape(t *testing.T) {
	o := NewOpenAI("key", "gpt-4o-mini")
	req := o.request("system prompt", "user prompt", 600)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 600, req.MaxTokens)

	require.NotNil(t, req.Temperature)
	assert.InDelta(t, extractionTemperature, float64(*req.Temperature), 1e-6)

	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, req.ResponseFormat.Type)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "system prompt", req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "user prompt", req.Messages[1].Content)
}
