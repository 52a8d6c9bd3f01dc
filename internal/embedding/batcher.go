package embedding

import (
	"context"
	"errors"
	"time"

	"govreporter/pkg/logger"
)

const (
	defaultBatchSize = 100
	batchAttempts    = 3
	batchBaseDelay   = time.Second
)

// Batcher wraps a Model with the pipeline's embedding contract: inputs are
// split into sub-batches, failed sub-batches retry with backoff and then
// degrade to per-item calls, and an item that still fails yields a zero
// vector so the caller can mark its document for re-embedding instead of
// silently dropping the chunk.
type Batcher struct {
	model     Model
	batchSize int
	baseDelay time.Duration
	log       *logger.Logger
}

// NewBatcher wraps model. batchSize <= 0 selects the default of 100.
func NewBatcher(model Model, batchSize int, log *logger.Logger) *Batcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Batcher{model: model, batchSize: batchSize, baseDelay: batchBaseDelay, log: log}
}

// Dimensions returns the underlying model's vector size.
func (b *Batcher) Dimensions() int { return b.model.Dimensions() }

// EmbedBatch embeds texts and returns vectors in input order together with
// the indices of items that could not be embedded (their vectors are zero).
// len(vectors) always equals len(texts).
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int) {
	vectors := make([][]float32, len(texts))
	var failed []int

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		sub := texts[start:end]

		got, err := b.embedWithRetry(ctx, sub)
		if err == nil {
			copy(vectors[start:end], got)
			continue
		}

		b.log.WithError(err).WithField("batch_size", len(sub)).
			Warn("embedding sub-batch failed, falling back to per-item requests")

		for i, text := range sub {
			one, itemErr := b.embedWithRetry(ctx, []string{text})
			if itemErr != nil {
				b.log.WithError(itemErr).WithField("item", start+i).
					Error("embedding item failed, emitting zero vector")
				vectors[start+i] = make([]float32, b.model.Dimensions())
				failed = append(failed, start+i)
				continue
			}
			vectors[start+i] = one[0]
		}
	}
	return vectors, failed
}

func (b *Batcher) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < batchAttempts; attempt++ {
		if attempt > 0 {
			delay := b.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		got, err := b.model.Embed(ctx, texts)
		if err == nil {
			return got, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
