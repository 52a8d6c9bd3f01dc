package llm

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// extractionTemperature keeps field extraction near-deterministic.
const extractionTemperature = 0.2

// OpenAI drives a chat model with response_format json_object, so the reply
// is guaranteed to be a single JSON document.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a client for the given model.
func NewOpenAI(apiKey, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Name() string { return "openai/" + o.model }

// request builds the JSON-mode exchange for one completion.
func (o *OpenAI) request(system, user string, maxTokens int) openai.ChatCompletionRequest {
	temperature := float32(extractionTemperature)
	return openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: &temperature,
		MaxTokens:   maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
}

// CompleteJSON sends one exchange and returns the JSON reply text.
func (o *OpenAI) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(system, user, maxTokens))
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
