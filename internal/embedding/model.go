// Package embedding generates dense vectors for chunk text. A Model is one
// provider; the Batcher layers the operational contract (sub-batching,
// retry, per-item fallback, zero-vector marking) on top of any Model.
package embedding

import "context"

// Model produces one vector per input text, in input order.
type Model interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}
