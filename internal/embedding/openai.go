package embedding

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIModel calls the OpenAI embeddings endpoint. One API call embeds a
// whole batch of texts.
type OpenAIModel struct {
	client     *openai.Client
	model      string
	dimensions int
}

// NewOpenAIModel creates a model client. The dimension must match the model
// (1536 for text-embedding-3-small).
func NewOpenAIModel(apiKey, model string, dimensions int) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	return &OpenAIModel{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimensions: dimensions,
	}
}

// Dimensions returns the vector size this model produces.
func (m *OpenAIModel) Dimensions() int { return m.dimensions }

// Embed generates vectors for a batch of texts, in input order.
func (m *OpenAIModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	}
	resp, err := m.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("create embeddings: got %d vectors for %d texts", len(resp.Data), len(texts))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != m.dimensions {
			return nil, fmt.Errorf("create embeddings: vector %d has dimension %d, want %d",
				i, len(d.Embedding), m.dimensions)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
