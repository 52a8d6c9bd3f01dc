package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"govreporter/internal/models"
)

// ErrInvalid marks configuration problems. Callers map it to the
// configuration exit code.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full environment-driven configuration. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
type Config struct {
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	CourtListenerToken string `envconfig:"COURT_LISTENER_API_TOKEN"`
	GeminiAPIKey       string `envconfig:"GEMINI_API_KEY"`

	LLMProvider         string `envconfig:"LLM_PROVIDER" default:"openai"`
	ExtractionModel     string `envconfig:"EXTRACTION_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbedBatchSize      int    `envconfig:"EMBED_BATCH_SIZE" default:"100"`

	MilvusAddress string `envconfig:"MILVUS_ADDRESS" default:"localhost:19530"`
	MilvusAPIKey  string `envconfig:"MILVUS_API_KEY"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	EmbedCacheTTL time.Duration `envconfig:"EMBED_CACHE_TTL" default:"336h"`

	ProgressDir         string        `envconfig:"PROGRESS_DIR" default:"./data/progress"`
	ProgressStaleAfter  time.Duration `envconfig:"PROGRESS_STALE_AFTER" default:"10m"`
	ProgressMaxAttempts int           `envconfig:"PROGRESS_MAX_ATTEMPTS" default:"3"`
	PipelineWorkers     int           `envconfig:"PIPELINE_WORKERS" default:"4"`

	OpinionMinTokens    int     `envconfig:"RAG_OPINION_MIN_TOKENS" default:"500"`
	OpinionTargetTokens int     `envconfig:"RAG_OPINION_TARGET_TOKENS" default:"600"`
	OpinionMaxTokens    int     `envconfig:"RAG_OPINION_MAX_TOKENS" default:"800"`
	OpinionOverlapRatio float64 `envconfig:"RAG_OPINION_OVERLAP_RATIO" default:"0.15"`

	OrderMinTokens    int     `envconfig:"RAG_ORDER_MIN_TOKENS" default:"240"`
	OrderTargetTokens int     `envconfig:"RAG_ORDER_TARGET_TOKENS" default:"340"`
	OrderMaxTokens    int     `envconfig:"RAG_ORDER_MAX_TOKENS" default:"400"`
	OrderOverlapRatio float64 `envconfig:"RAG_ORDER_OVERLAP_RATIO" default:"0.10"`

	MCPDefaultSearchLimit int     `envconfig:"MCP_DEFAULT_SEARCH_LIMIT" default:"10"`
	MCPMaxSearchLimit     int     `envconfig:"MCP_MAX_SEARCH_LIMIT" default:"50"`
	MCPLogLevel           string  `envconfig:"MCP_LOG_LEVEL" default:"info"`
	MaxChunkChars         int     `envconfig:"MCP_MAX_CHUNK_CHARS" default:"2000"`
	HintScoreThreshold    float64 `envconfig:"MCP_HINT_SCORE_THRESHOLD" default:"0.4"`
	HintMaxHits           int     `envconfig:"MCP_HINT_MAX_HITS" default:"3"`
}

// ChunkProfile is one corpus's token budget for the sliding window.
type ChunkProfile struct {
	MinTokens    int
	TargetTokens int
	MaxTokens    int
	OverlapRatio float64
}

func (p ChunkProfile) validate(name string) error {
	if p.MinTokens <= 0 || p.MinTokens > p.TargetTokens || p.TargetTokens > p.MaxTokens {
		return fmt.Errorf("%w: %s token budget must satisfy 0 < min <= target <= max, got %d/%d/%d",
			ErrInvalid, name, p.MinTokens, p.TargetTokens, p.MaxTokens)
	}
	if p.OverlapRatio < 0 || p.OverlapRatio >= 1 {
		return fmt.Errorf("%w: %s overlap ratio must be in [0, 1), got %v", ErrInvalid, name, p.OverlapRatio)
	}
	return nil
}

// Load reads the environment (plus an optional .env file) and checks the
// structural invariants that hold for every entry point. Credential checks
// are per-command, see the Validate methods.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if err := cfg.OpinionChunking().validate("opinion"); err != nil {
		return nil, err
	}
	if err := cfg.OrderChunking().validate("order"); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDimensions <= 0 {
		return nil, fmt.Errorf("%w: EMBEDDING_DIMENSIONS must be positive", ErrInvalid)
	}
	if cfg.EmbedBatchSize <= 0 {
		return nil, fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive", ErrInvalid)
	}
	if cfg.PipelineWorkers <= 0 {
		return nil, fmt.Errorf("%w: PIPELINE_WORKERS must be positive", ErrInvalid)
	}
	if cfg.MCPDefaultSearchLimit < 1 || cfg.MCPMaxSearchLimit < cfg.MCPDefaultSearchLimit {
		return nil, fmt.Errorf("%w: search limits must satisfy 1 <= default <= max", ErrInvalid)
	}
	switch cfg.LLMProvider {
	case "openai", "gemini":
	default:
		return nil, fmt.Errorf("%w: LLM_PROVIDER must be openai or gemini, got %q", ErrInvalid, cfg.LLMProvider)
	}
	return &cfg, nil
}

// OpinionChunking returns the opinion corpus token budget.
func (c *Config) OpinionChunking() ChunkProfile {
	return ChunkProfile{
		MinTokens:    c.OpinionMinTokens,
		TargetTokens: c.OpinionTargetTokens,
		MaxTokens:    c.OpinionMaxTokens,
		OverlapRatio: c.OpinionOverlapRatio,
	}
}

// OrderChunking returns the executive-order corpus token budget.
func (c *Config) OrderChunking() ChunkProfile {
	return ChunkProfile{
		MinTokens:    c.OrderMinTokens,
		TargetTokens: c.OrderTargetTokens,
		MaxTokens:    c.OrderMaxTokens,
		OverlapRatio: c.OrderOverlapRatio,
	}
}

// ValidateIngest checks the credentials an ingestion run needs.
func (c *Config) ValidateIngest(t models.DocumentType) error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if t == models.DocumentTypeCourtOpinion && c.CourtListenerToken == "" {
		return fmt.Errorf("%w: COURT_LISTENER_API_TOKEN is required to ingest opinions", ErrInvalid)
	}
	return nil
}

// ValidateServer checks the credentials the MCP server and query command need.
func (c *Config) ValidateServer() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrInvalid)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrInvalid)
	}
	if c.LLMProvider == "gemini" && c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY is required when LLM_PROVIDER=gemini", ErrInvalid)
	}
	return nil
}
