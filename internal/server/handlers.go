package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"govreporter/internal/database/milvus"
	"govreporter/internal/models"
)

// embedQuery turns the query text into a vector. A zero vector means the
// embedding service is down, which the caller reports as a tool error.
func (s *Server) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, failed := s.embedder.EmbedBatch(ctx, []string{query})
	if len(failed) > 0 || len(vectors) != 1 {
		return nil, errors.New("embedding service unavailable, try again shortly")
	}
	return vectors[0], nil
}

// searchOne runs a filtered search against a single collection.
func (s *Server) searchOne(ctx context.Context, collection, query string, limit int, filter *models.Filter) ([]models.SearchResult, error) {
	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.store.SemanticSearch(ctx, collection, vector, limit, filter)
}

func (s *Server) limitFrom(req mcp.CallToolRequest) int {
	return clampLimit(int(req.GetFloat("limit", 0)), s.cfg.MCPDefaultSearchLimit, s.cfg.MCPMaxSearchLimit)
}

func (s *Server) handleSearchGovernmentDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, err
	}
	limit := s.limitFrom(req)

	collections := req.GetStringSlice("document_types", nil)
	if len(collections) == 0 {
		collections = []string{models.CollectionCourtOpinions, models.CollectionExecutiveOrders}
	}
	for _, c := range collections {
		if _, err := models.DocumentTypeForCollection(c); err != nil {
			return nil, fmt.Errorf("document_types: %w", err)
		}
	}

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var merged []models.SearchResult
	for _, collection := range collections {
		hits, err := s.store.SemanticSearch(ctx, collection, vector, limit, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search in %s failed: %v", collection, err)), nil
		}
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return mcp.NewToolResultText(s.shape.FormatResults(query, merged)), nil
}

func (s *Server) handleSearchCourtOpinions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, err
	}

	var conds []models.Condition
	if v := req.GetString("opinion_type", ""); v != "" {
		conds = append(conds, models.FieldEquals{Field: "opinion_type", Value: v})
	}
	if v := req.GetString("justice", ""); v != "" {
		conds = append(conds, models.FieldEquals{Field: "justice", Value: v})
	}
	if cond, ok := dateRangeFrom(req); ok {
		conds = append(conds, cond)
	}

	hits, err := s.searchOne(ctx, models.CollectionCourtOpinions, query, s.limitFrom(req), models.NewFilter(conds...))
	if err != nil {
		return mcp.NewToolResultError("opinion search failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(s.shape.FormatResults(query, hits)), nil
}

func (s *Server) handleSearchExecutiveOrders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return nil, err
	}

	var conds []models.Condition
	if v := req.GetString("president", ""); v != "" {
		conds = append(conds, models.FieldEquals{Field: "president", Value: v})
	}
	if vs := req.GetStringSlice("agencies", nil); len(vs) > 0 {
		conds = append(conds, models.ArrayContainsAny{Field: "agencies_impacted", Values: vs})
	}
	if vs := req.GetStringSlice("policy_topics", nil); len(vs) > 0 {
		conds = append(conds, models.ArrayContainsAny{Field: "policy_topics", Values: vs})
	}
	if cond, ok := dateRangeFrom(req); ok {
		conds = append(conds, cond)
	}

	hits, err := s.searchOne(ctx, models.CollectionExecutiveOrders, query, s.limitFrom(req), models.NewFilter(conds...))
	if err != nil {
		return mcp.NewToolResultError("executive order search failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(s.shape.FormatResults(query, hits)), nil
}

func dateRangeFrom(req mcp.CallToolRequest) (models.Condition, bool) {
	from := req.GetString("date_from", "")
	to := req.GetString("date_to", "")
	if from == "" && to == "" {
		return nil, false
	}
	return models.DateRange{Field: "publication_date", From: from, To: to}, true
}

func (s *Server) handleGetDocumentByID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("document_id")
	if err != nil {
		return nil, err
	}
	collection, err := req.RequireString("collection")
	if err != nil {
		return nil, err
	}
	docType, err := models.DocumentTypeForCollection(collection)
	if err != nil {
		return nil, err
	}

	res, err := s.store.GetByID(ctx, collection, id)
	if errors.Is(err, milvus.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no chunk %q in %s", id, collection)), nil
	}
	if err != nil {
		return mcp.NewToolResultError("lookup failed: " + err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(FormatChunk(res))

	if req.GetBool("full_document", false) {
		fetcher := s.fetchers[docType]
		if fetcher == nil {
			return mcp.NewToolResultError("live document access is not configured for " + collection), nil
		}
		doc, err := fetcher.Fetch(ctx, res.Payload.SourceDocumentID())
		if err != nil {
			return mcp.NewToolResultError("could not fetch the source document: " + err.Error()), nil
		}
		b.WriteString("\n---\n\n")
		b.WriteString(renderDocument(doc))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleListCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.store.ListCollections(ctx)
	if err != nil {
		return mcp.NewToolResultError(FormatCollections(nil, err)), nil
	}
	return mcp.NewToolResultText(FormatCollections(infos, nil)), nil
}
