// Package app builds and caches the service graph the CLI and the MCP
// binary share. Construction is lazy so commands only pay for what they use.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"govreporter/internal/apis"
	"govreporter/internal/chunking"
	"govreporter/internal/config"
	"govreporter/internal/database/milvus"
	"govreporter/internal/database/progress"
	"govreporter/internal/embedding"
	"govreporter/internal/extractor"
	"govreporter/internal/ingestion"
	"govreporter/internal/llm"
	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

// Application owns the shared service instances. Tests construct the struct
// directly with fakes; production code goes through New and the getters.
type Application struct {
	Config *config.Config
	Log    *logger.Logger

	store    milvus.Store
	embedder *embedding.Batcher
	counter  chunking.TokenCounter
}

// New creates an application around a loaded configuration. The run id ties
// all log lines of one invocation together.
func New(cfg *config.Config, component string) *Application {
	logger.Init(logger.ParseLevel(cfg.MCPLogLevel))
	return &Application{
		Config: cfg,
		Log:    logger.New(component, uuid.NewString()),
	}
}

// Milvus dials the vector store once and caches the client.
func (a *Application) Milvus(ctx context.Context) (milvus.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := milvus.Connect(ctx, a.Config.MilvusAddress, a.Config.MilvusAPIKey, a.Log)
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", a.Config.MilvusAddress, err)
	}
	a.store = store
	return store, nil
}

// SetStore injects a vector store, displacing the lazy connection. Used by
// tests and by commands that already hold a client.
func (a *Application) SetStore(store milvus.Store) {
	a.store = store
}

// Embedder builds the batch embedder, wrapping the model in the Redis
// lookaside cache when one is configured.
func (a *Application) Embedder() *embedding.Batcher {
	if a.embedder != nil {
		return a.embedder
	}
	var model embedding.Model = embedding.NewOpenAIModel(
		a.Config.OpenAIAPIKey, a.Config.EmbeddingModel, a.Config.EmbeddingDimensions)
	if a.Config.RedisAddr != "" {
		model = embedding.NewCachedModel(model, a.Config.RedisAddr, a.Config.EmbeddingModel, a.Config.EmbedCacheTTL, a.Log)
	}
	a.embedder = embedding.NewBatcher(model, a.Config.EmbedBatchSize, a.Log)
	return a.embedder
}

// Extractor builds the LLM metadata extractor for the configured provider.
func (a *Application) Extractor() (extractor.Extractor, error) {
	client, err := llm.New(a.Config)
	if err != nil {
		return nil, err
	}
	return extractor.New(client, a.Log), nil
}

// Fetcher returns the upstream client for one corpus.
func (a *Application) Fetcher(t models.DocumentType) (apis.Fetcher, error) {
	switch t {
	case models.DocumentTypeCourtOpinion:
		return apis.NewCourtListener(a.Config.CourtListenerToken, a.Log), nil
	case models.DocumentTypeExecutiveOrder:
		return apis.NewFederalRegister(a.Log), nil
	}
	return nil, fmt.Errorf("no fetcher for document type %q", t)
}

// Fetchers returns both corpus fetchers keyed by type, for the MCP server's
// live document features.
func (a *Application) Fetchers() map[models.DocumentType]apis.Fetcher {
	return map[models.DocumentType]apis.Fetcher{
		models.DocumentTypeCourtOpinion:   apis.NewCourtListener(a.Config.CourtListenerToken, a.Log),
		models.DocumentTypeExecutiveOrder: apis.NewFederalRegister(a.Log),
	}
}

// Chunker builds the corpus-specific chunker over the shared token counter.
func (a *Application) Chunker(t models.DocumentType) (ingestion.Chunker, error) {
	if a.counter == nil {
		a.counter = chunking.NewTokenCounter(a.Log)
	}
	switch t {
	case models.DocumentTypeCourtOpinion:
		p := a.Config.OpinionChunking()
		return chunking.NewOpinionChunker(chunking.Config{
			MinTokens:    p.MinTokens,
			TargetTokens: p.TargetTokens,
			MaxTokens:    p.MaxTokens,
			OverlapRatio: p.OverlapRatio,
		}, a.counter)
	case models.DocumentTypeExecutiveOrder:
		p := a.Config.OrderChunking()
		return chunking.NewOrderChunker(chunking.Config{
			MinTokens:    p.MinTokens,
			TargetTokens: p.TargetTokens,
			MaxTokens:    p.MaxTokens,
			OverlapRatio: p.OverlapRatio,
		}, a.counter)
	}
	return nil, fmt.Errorf("no chunker for document type %q", t)
}

// Progress opens the per-corpus progress ledger.
func (a *Application) Progress(t models.DocumentType) (*progress.Store, error) {
	return progress.Open(a.Config.ProgressDir, t, progress.Options{
		StaleAfter:  a.Config.ProgressStaleAfter,
		MaxAttempts: a.Config.ProgressMaxAttempts,
	})
}
