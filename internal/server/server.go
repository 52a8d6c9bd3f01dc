// Package server exposes the indexed corpora to LLM clients over the Model
// Context Protocol: search tools, chunk lookup and full-document resources.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"govreporter/internal/apis"
	"govreporter/internal/config"
	"govreporter/internal/database/milvus"
	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

const serverVersion = "1.0.0"

// Embedder turns query text into a vector.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int)
	Dimensions() int
}

// Server owns the MCP surface and its backing services.
type Server struct {
	cfg      *config.Config
	store    milvus.Store
	embedder Embedder
	fetchers map[models.DocumentType]apis.Fetcher
	shape    *shaper
	log      *logger.Logger
	mcp      *server.MCPServer
}

// New wires the MCP server. Fetchers may be nil-valued per type when live
// document access is not configured; the matching features degrade to errors.
func New(cfg *config.Config, store milvus.Store, embedder Embedder, fetchers map[models.DocumentType]apis.Fetcher, log *logger.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		fetchers: fetchers,
		shape: &shaper{
			maxChunkChars: cfg.MaxChunkChars,
			hintThreshold: cfg.HintScoreThreshold,
			hintMaxHits:   cfg.HintMaxHits,
		},
		log: log,
	}

	s.mcp = server.NewMCPServer("govreporter", serverVersion,
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// Prepare verifies the vector store is reachable and both collections exist
// with the configured dimension. Called once before serving.
func (s *Server) Prepare(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("vector store not reachable: %w", err)
	}
	dim := s.embedder.Dimensions()
	for _, collection := range []string{models.CollectionCourtOpinions, models.CollectionExecutiveOrders} {
		if err := s.store.EnsureCollection(ctx, collection, dim); err != nil {
			return err
		}
	}
	return nil
}

// Serve blocks on the selected transport until the client disconnects or the
// listener fails.
func (s *Server) Serve(transport string, port int) error {
	switch transport {
	case "", "stdio":
		s.log.Info("serving MCP over stdio")
		return server.ServeStdio(s.mcp)
	case "sse":
		s.log.WithField("port", port).Info("serving MCP over SSE")
		return server.NewSSEServer(s.mcp).Start(fmt.Sprintf(":%d", port))
	case "httpstream":
		s.log.WithField("port", port).Info("serving MCP over streamable HTTP")
		return server.NewStreamableHTTPServer(s.mcp).Start(fmt.Sprintf(":%d", port))
	}
	return fmt.Errorf("unknown transport %q: use stdio, sse, or httpstream", transport)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("search_government_documents",
		mcp.WithDescription("Semantic search across US federal legal documents: Supreme Court opinions and Executive Orders. Returns the most relevant text chunks with document context."),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Natural-language search query")),
		mcp.WithArray("document_types",
			mcp.Description("Restrict the search to these collections; default is all"),
			mcp.Items(map[string]any{"type": "string", "enum": []string{models.CollectionCourtOpinions, models.CollectionExecutiveOrders}})),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results")),
	), s.logged("search_government_documents", s.handleSearchGovernmentDocuments))

	s.mcp.AddTool(mcp.NewTool("search_court_opinions",
		mcp.WithDescription("Semantic search over Supreme Court opinions with legal filters: opinion type, authoring justice, decision date range."),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Natural-language search query")),
		mcp.WithString("opinion_type",
			mcp.Description("Restrict to one structural opinion type"),
			mcp.Enum(string(models.OpinionSyllabus), string(models.OpinionMajority),
				string(models.OpinionConcurring), string(models.OpinionDissenting),
				string(models.OpinionConcurDissent))),
		mcp.WithString("justice",
			mcp.Description("Authoring justice's last name, e.g. Sotomayor")),
		mcp.WithString("date_from", mcp.Description("Earliest decision date, YYYY-MM-DD")),
		mcp.WithString("date_to", mcp.Description("Latest decision date, YYYY-MM-DD")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.logged("search_court_opinions", s.handleSearchCourtOpinions))

	s.mcp.AddTool(mcp.NewTool("search_executive_orders",
		mcp.WithDescription("Semantic search over Executive Orders with policy filters: president, impacted agencies, policy topics, signing date range."),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Natural-language search query")),
		mcp.WithString("president",
			mcp.Description("Signing president's full name, e.g. Joseph R. Biden Jr.")),
		mcp.WithArray("agencies",
			mcp.Description("Match orders impacting any of these agencies"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithArray("policy_topics",
			mcp.Description("Match orders tagged with any of these topics"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("date_from", mcp.Description("Earliest signing date, YYYY-MM-DD")),
		mcp.WithString("date_to", mcp.Description("Latest signing date, YYYY-MM-DD")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results")),
	), s.logged("search_executive_orders", s.handleSearchExecutiveOrders))

	s.mcp.AddTool(mcp.NewTool("get_document_by_id",
		mcp.WithDescription("Fetch one stored chunk by its exact id, optionally with the full live source document."),
		mcp.WithString("document_id", mcp.Required(),
			mcp.Description("Chunk id from a search result")),
		mcp.WithString("collection", mcp.Required(),
			mcp.Description("Collection that holds the chunk"),
			mcp.Enum(models.CollectionCourtOpinions, models.CollectionExecutiveOrders)),
		mcp.WithBoolean("full_document",
			mcp.Description("Also fetch and render the complete source document")),
	), s.logged("get_document_by_id", s.handleGetDocumentByID))

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the indexed collections with chunk counts, vector dimensions and payload fields."),
	), s.logged("list_collections", s.handleListCollections))
}

// logged wraps a tool handler with per-call structured logging.
func (s *Server) logged(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		res, err := h(ctx, req)

		fields := map[string]interface{}{
			"tool":        name,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		entry := s.log.WithPayload(fields)
		switch {
		case err != nil:
			entry.WithError(err).Warn("tool call failed")
		case res != nil && res.IsError:
			entry.Warn("tool call returned error result")
		default:
			entry.Info("tool call served")
		}
		return res, err
	}
}
