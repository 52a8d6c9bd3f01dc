package server

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govreporter/internal/apis"
	"govreporter/internal/config"
	"govreporter/internal/database/milvus"
	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

type searchCall struct {
	collection string
	limit      int
	filter     *models.Filter
}

type fakeStore struct {
	hits      map[string][]models.SearchResult
	searches  []searchCall
	byID      map[string]*models.SearchResult
	searchErr error
	infos     []milvus.CollectionInfo
}

func (s *fakeStore) EnsureCollection(context.Context, string, int) error { return nil }
func (s *fakeStore) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *fakeStore) BatchUpsert(context.Context, string, []*models.ChunkPayload, [][]float32) (*milvus.UpsertReport, error) {
	return &milvus.UpsertReport{}, nil
}

func (s *fakeStore) SemanticSearch(_ context.Context, collection string, _ []float32, limit int, filter *models.Filter) ([]models.SearchResult, error) {
	s.searches = append(s.searches, searchCall{collection: collection, limit: limit, filter: filter})
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.hits[collection], nil
}

func (s *fakeStore) GetByID(_ context.Context, _, id string) (*models.SearchResult, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, milvus.ErrNotFound
}

func (s *fakeStore) ListCollections(context.Context) ([]milvus.CollectionInfo, error) {
	return s.infos, nil
}

func (s *fakeStore) DeleteCollection(context.Context, string) error { return nil }
func (s *fakeStore) HealthCheck(context.Context) error              { return nil }

type stubEmbedder struct {
	fail bool
}

func (e *stubEmbedder) Dimensions() int { return 4 }

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, []int) {
	vectors := make([][]float32, len(texts))
	var failed []int
	for i := range texts {
		vectors[i] = []float32{1, 0, 0, 0}
		if e.fail {
			failed = append(failed, i)
		}
	}
	return vectors, failed
}

func testConfig() *config.Config {
	return &config.Config{
		MCPDefaultSearchLimit: 10,
		MCPMaxSearchLimit:     50,
		MaxChunkChars:         2000,
		HintScoreThreshold:    0.4,
		HintMaxHits:           3,
	}
}

func newTestServer(store *fakeStore) *Server {
	logrus.SetLevel(logrus.PanicLevel)
	return New(testConfig(), store, &stubEmbedder{}, map[models.DocumentType]apis.Fetcher{}, logger.New("server-test", ""))
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestSearchGovernmentDocumentsMergesAndSorts(t *testing.T) {
	store := &fakeStore{hits: map[string][]models.SearchResult{
		models.CollectionCourtOpinions:   {opinionHit(0.6)},
		models.CollectionExecutiveOrders: {orderHit(0.9)},
	}}
	s := newTestServer(store)

	res, err := s.handleSearchGovernmentDocuments(context.Background(), toolRequest(map[string]any{
		"query": "climate policy",
	}))
	require.NoError(t, err)
	out := textOf(t, res)

	assert.Contains(t, out, `Found 2 results`)
	// The stronger executive-order hit ranks first.
	assert.Less(t,
		strings.Index(out, "EO 14008"),
		strings.Index(out, "Dobbs v. Jackson"))
	require.Len(t, store.searches, 2)
}

func TestSearchGovernmentDocumentsRejectsUnknownCollection(t *testing.T) {
	s := newTestServer(&fakeStore{})
	_, err := s.handleSearchGovernmentDocuments(context.Background(), toolRequest(map[string]any{
		"query":          "x",
		"document_types": []any{"no_such_collection"},
	}))
	assert.Error(t, err)
}

func TestSearchGovernmentDocumentsRequiresQuery(t *testing.T) {
	s := newTestServer(&fakeStore{})
	_, err := s.handleSearchGovernmentDocuments(context.Background(), toolRequest(map[string]any{}))
	assert.Error(t, err)
}

func TestSearchGovernmentDocumentsEmbedFailure(t *testing.T) {
	s := newTestServer(&fakeStore{})
	s.embedder = &stubEmbedder{fail: true}

	res, err := s.handleSearchGovernmentDocuments(context.Background(), toolRequest(map[string]any{
		"query": "x",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestSearchCourtOpinionsBuildsFilter(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	_, err := s.handleSearchCourtOpinions(context.Background(), toolRequest(map[string]any{
		"query":        "qualified immunity",
		"opinion_type": "dissenting",
		"justice":      "Sotomayor",
		"date_from":    "2020-01-01",
		"limit":        float64(5),
	}))
	require.NoError(t, err)

	require.Len(t, store.searches, 1)
	call := store.searches[0]
	assert.Equal(t, models.CollectionCourtOpinions, call.collection)
	assert.Equal(t, 5, call.limit)
	require.NotNil(t, call.filter)
	assert.Contains(t, call.filter.Conditions, models.Condition(models.FieldEquals{Field: "opinion_type", Value: "dissenting"}))
	assert.Contains(t, call.filter.Conditions, models.Condition(models.FieldEquals{Field: "justice", Value: "Sotomayor"}))
	assert.Contains(t, call.filter.Conditions, models.Condition(models.DateRange{Field: "publication_date", From: "2020-01-01"}))
}

func TestSearchCourtOpinionsNoFiltersMeansNilFilter(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	_, err := s.handleSearchCourtOpinions(context.Background(), toolRequest(map[string]any{"query": "x"}))
	require.NoError(t, err)
	require.Len(t, store.searches, 1)
	assert.Nil(t, store.searches[0].filter)
}

func TestSearchExecutiveOrdersArrayFilters(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	_, err := s.handleSearchExecutiveOrders(context.Background(), toolRequest(map[string]any{
		"query":         "emissions",
		"president":     "Joseph R. Biden Jr.",
		"agencies":      []any{"Environmental Protection Agency"},
		"policy_topics": []any{"climate", "energy"},
	}))
	require.NoError(t, err)

	require.Len(t, store.searches, 1)
	call := store.searches[0]
	assert.Equal(t, models.CollectionExecutiveOrders, call.collection)
	require.NotNil(t, call.filter)
	assert.Contains(t, call.filter.Conditions,
		models.Condition(models.ArrayContainsAny{Field: "policy_topics", Values: []string{"climate", "energy"}}))
}

func TestSearchLimitClamped(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)

	_, err := s.handleSearchCourtOpinions(context.Background(), toolRequest(map[string]any{
		"query": "x",
		"limit": float64(500),
	}))
	require.NoError(t, err)
	assert.Equal(t, 50, store.searches[0].limit)
}

func TestSearchUpstreamFailureIsToolError(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("milvus down")}
	s := newTestServer(store)

	res, err := s.handleSearchCourtOpinions(context.Background(), toolRequest(map[string]any{"query": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "milvus down")
}

func TestGetDocumentByID(t *testing.T) {
	hit := orderHit(0)
	store := &fakeStore{byID: map[string]*models.SearchResult{hit.ID: &hit}}
	s := newTestServer(store)

	res, err := s.handleGetDocumentByID(context.Background(), toolRequest(map[string]any{
		"document_id": hit.ID,
		"collection":  models.CollectionExecutiveOrders,
	}))
	require.NoError(t, err)
	out := textOf(t, res)
	assert.Contains(t, out, "EO 14008")
	assert.Contains(t, out, "It is the policy")
}

func TestGetDocumentByIDNotFound(t *testing.T) {
	s := newTestServer(&fakeStore{})

	res, err := s.handleGetDocumentByID(context.Background(), toolRequest(map[string]any{
		"document_id": "missing",
		"collection":  models.CollectionCourtOpinions,
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetDocumentByIDUnknownCollection(t *testing.T) {
	s := newTestServer(&fakeStore{})
	_, err := s.handleGetDocumentByID(context.Background(), toolRequest(map[string]any{
		"document_id": "x",
		"collection":  "not_a_collection",
	}))
	assert.Error(t, err)
}

func TestListCollections(t *testing.T) {
	store := &fakeStore{infos: []milvus.CollectionInfo{{Name: "court_opinions", Count: 7, Dimension: 1536, Metric: "cosine"}}}
	s := newTestServer(store)

	res, err := s.handleListCollections(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	out := textOf(t, res)
	assert.Contains(t, out, "court_opinions")
	assert.Contains(t, out, "chunks: 7")
}
