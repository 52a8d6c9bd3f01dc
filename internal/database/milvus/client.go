// Package milvus adapts the Milvus vector database to the chunk-payload
// model: per-corpus collections with a fixed schema, idempotent batch
// upserts keyed by deterministic chunk ids, and cosine top-k search with
// typed metadata filters.
package milvus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

// Collection schema field names.
const (
	fieldID       = "id"
	fieldVector   = "embedding"
	fieldDocID    = "document_id"
	fieldText     = "chunk_text"
	fieldDate     = "publication_date"
	fieldMetadata = "metadata"
)

const (
	maxIDLength  = 64
	maxDocIDLen  = 256
	maxTextLen   = 65535
	maxDateLen   = 32
	hnswM        = 16
	hnswEfBuild  = 200
	hnswEfSearch = 64
	numShards    = 1
)

// ErrNotFound is returned by GetByID when no point carries the id.
var ErrNotFound = errors.New("not found")

// ItemError ties a per-payload upsert problem to its chunk id.
type ItemError struct {
	ID  string
	Err error
}

// UpsertReport summarizes one BatchUpsert call.
type UpsertReport struct {
	Written int
	Skipped int
	Errors  []ItemError
}

// CollectionInfo describes one collection for inventory listings.
type CollectionInfo struct {
	Name         string
	Count        int64
	Dimension    int
	Metric       string
	SampleFields []string
}

// Store is the vector-store surface the pipeline and server depend on.
// Tests substitute fakes.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Exists(ctx context.Context, collection, id string) (bool, error)
	BatchUpsert(ctx context.Context, collection string, payloads []*models.ChunkPayload, vectors [][]float32) (*UpsertReport, error)
	SemanticSearch(ctx context.Context, collection string, vector []float32, limit int, filter *models.Filter) ([]models.SearchResult, error)
	GetByID(ctx context.Context, collection, id string) (*models.SearchResult, error)
	ListCollections(ctx context.Context) ([]CollectionInfo, error)
	DeleteCollection(ctx context.Context, name string) error
	HealthCheck(ctx context.Context) error
}

// Client implements Store over milvus-sdk-go.
type Client struct {
	c   client.Client
	log *logger.Logger
}

// Connect dials the Milvus deployment at address. apiKey is empty for local
// deployments.
func Connect(ctx context.Context, address, apiKey string, log *logger.Logger) (*Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address, APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", address, err)
	}
	return &Client{c: c, log: log}, nil
}

// Close releases the connection.
func (m *Client) Close() error {
	return m.c.Close()
}

// HealthCheck verifies the deployment answers.
func (m *Client) HealthCheck(ctx context.Context) error {
	if _, err := m.c.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check: %w", err)
	}
	return nil
}

// EnsureCollection creates the chunk collection if it is missing, builds the
// HNSW cosine index and loads it. A dimension mismatch with an existing
// collection is fatal: the stored vectors would be unsearchable with the
// configured model.
func (m *Client) EnsureCollection(ctx context.Context, name string, dim int) error {
	has, err := m.c.HasCollection(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}

	if has {
		existing, err := m.dimensionOf(ctx, name)
		if err != nil {
			return err
		}
		if existing != dim {
			return fmt.Errorf("collection %s has dimension %d, configuration wants %d", name, existing, dim)
		}
	} else {
		schema := entity.NewSchema().WithName(name).
			WithDescription("chunked government document embeddings").
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxIDLength).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(dim))).
			WithField(entity.NewField().WithName(fieldDocID).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxDocIDLen)).
			WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxTextLen)).
			WithField(entity.NewField().WithName(fieldDate).WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(maxDateLen)).
			WithField(entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeJSON))

		if err := m.c.CreateCollection(ctx, schema, numShards); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		index, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEfBuild)
		if err != nil {
			return fmt.Errorf("build index definition for %s: %w", name, err)
		}
		if err := m.c.CreateIndex(ctx, name, fieldVector, index, false); err != nil {
			return fmt.Errorf("create index on %s: %w", name, err)
		}
		m.log.WithField("collection", name).Info("created collection with HNSW cosine index")
	}

	if err := m.c.LoadCollection(ctx, name, false); err != nil {
		return fmt.Errorf("load collection %s: %w", name, err)
	}
	return nil
}

// Exists reports whether a point with the id is stored. Used for duplicate
// detection before any fetching work is spent on a document.
func (m *Client) Exists(ctx context.Context, collection, id string) (bool, error) {
	rs, err := m.c.Query(ctx, collection, nil, fmt.Sprintf(`%s == %s`, fieldID, quote(id)), []string{fieldID})
	if err != nil {
		return false, fmt.Errorf("query %s for id: %w", collection, err)
	}
	col := rs.GetColumn(fieldID)
	return col != nil && col.Len() > 0, nil
}

// BatchUpsert writes payloads with their vectors in one call. Items failing
// validation are reported per-item and the remainder is still written; a
// repeated id overwrites its previous point, which makes re-ingestion
// idempotent.
func (m *Client) BatchUpsert(ctx context.Context, collection string, payloads []*models.ChunkPayload, vectors [][]float32) (*UpsertReport, error) {
	if len(payloads) != len(vectors) {
		return nil, fmt.Errorf("upsert into %s: %d payloads but %d vectors", collection, len(payloads), len(vectors))
	}
	report := &UpsertReport{}
	if len(payloads) == 0 {
		return report, nil
	}

	dim, err := m.dimensionOf(ctx, collection)
	if err != nil {
		return nil, err
	}

	var ids, docIDs, texts, dates []string
	var metas [][]byte
	var vecs [][]float32

	for i, p := range payloads {
		if err := validateItem(p, vectors[i], dim); err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, ItemError{ID: p.ID, Err: err})
			continue
		}
		meta, err := p.MetadataJSON()
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, ItemError{ID: p.ID, Err: err})
			continue
		}
		ids = append(ids, p.ID)
		docIDs = append(docIDs, p.DocumentID)
		texts = append(texts, truncateBytes(p.Text, maxTextLen))
		dates = append(dates, p.PublicationDate)
		metas = append(metas, meta)
		vecs = append(vecs, vectors[i])
	}

	if len(ids) == 0 {
		return report, nil
	}

	_, err = m.c.Upsert(ctx, collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnFloatVector(fieldVector, dim, vecs),
		entity.NewColumnVarChar(fieldDocID, docIDs),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnVarChar(fieldDate, dates),
		entity.NewColumnJSONBytes(fieldMetadata, metas),
	)
	if err != nil {
		return report, fmt.Errorf("upsert %d points into %s: %w", len(ids), collection, err)
	}
	report.Written = len(ids)
	return report, nil
}

// SemanticSearch returns the top-k points by cosine similarity, optionally
// restricted by a compiled filter expression.
func (m *Client) SemanticSearch(ctx context.Context, collection string, vector []float32, limit int, filter *models.Filter) ([]models.SearchResult, error) {
	expr, err := compileFilter(filter)
	if err != nil {
		return nil, err
	}
	sp, err := entity.NewIndexHNSWSearchParam(hnswEfSearch)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}

	results, err := m.c.Search(ctx, collection, nil, expr,
		[]string{fieldID, fieldText, fieldMetadata},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, limit, sp)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	var hits []models.SearchResult
	for _, res := range results {
		ids, texts, metas, err := resultColumns(res.Fields)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", collection, err)
		}
		for i := 0; i < res.ResultCount; i++ {
			payload, err := models.PayloadFromMetadata(ids[i], texts[i], metas[i])
			if err != nil {
				m.log.WithError(err).WithField("id", ids[i]).Warn("skipping undecodable payload in search result")
				continue
			}
			hits = append(hits, models.SearchResult{ID: ids[i], Score: res.Scores[i], Payload: payload})
		}
	}
	return hits, nil
}

// GetByID fetches one stored point without scoring.
func (m *Client) GetByID(ctx context.Context, collection, id string) (*models.SearchResult, error) {
	rs, err := m.c.Query(ctx, collection, nil, fmt.Sprintf(`%s == %s`, fieldID, quote(id)),
		[]string{fieldID, fieldText, fieldMetadata})
	if err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", id, collection, err)
	}
	ids, texts, metas, err := resultColumns(rs)
	if err != nil {
		return nil, fmt.Errorf("get %s from %s: %w", id, collection, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, id, collection)
	}
	payload, err := models.PayloadFromMetadata(ids[0], texts[0], metas[0])
	if err != nil {
		return nil, err
	}
	return &models.SearchResult{ID: ids[0], Payload: payload}, nil
}

// ListCollections inventories every collection with its row count, vector
// dimension and a sample of payload field names.
func (m *Client) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	cols, err := m.c.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(cols))
	for _, col := range cols {
		info := CollectionInfo{Name: col.Name, Metric: "cosine"}

		if stats, err := m.c.GetCollectionStatistics(ctx, col.Name); err == nil {
			if n, err := strconv.ParseInt(stats["row_count"], 10, 64); err == nil {
				info.Count = n
			}
		}
		if dim, err := m.dimensionOf(ctx, col.Name); err == nil {
			info.Dimension = dim
		}
		info.SampleFields = m.sampleFields(ctx, col.Name)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// DeleteCollection drops a collection and its data.
func (m *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := m.c.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("drop collection %s: %w", name, err)
	}
	m.log.WithField("collection", name).Info("dropped collection")
	return nil
}

// dimensionOf reads the vector dimension from the collection schema.
func (m *Client) dimensionOf(ctx context.Context, name string) (int, error) {
	desc, err := m.c.DescribeCollection(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("describe collection %s: %w", name, err)
	}
	for _, f := range desc.Schema.Fields {
		if f.Name != fieldVector {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams[entity.TypeParamDim])
		if err != nil {
			return 0, fmt.Errorf("collection %s has unparseable dimension: %w", name, err)
		}
		return dim, nil
	}
	return 0, fmt.Errorf("collection %s has no %s field", name, fieldVector)
}

// sampleFields returns the first ten payload field names of one stored
// point, sorted, for the inventory listing. Best effort.
func (m *Client) sampleFields(ctx context.Context, name string) []string {
	rs, err := m.c.Query(ctx, name, nil, "", []string{fieldID, fieldText, fieldMetadata},
		client.WithLimit(1))
	if err != nil {
		return nil
	}
	ids, texts, metas, err := resultColumns(rs)
	if err != nil || len(ids) == 0 {
		return nil
	}
	payload, err := models.PayloadFromMetadata(ids[0], texts[0], metas[0])
	if err != nil {
		return nil
	}
	fields := payloadFieldNames(payload)
	sort.Strings(fields)
	if len(fields) > 10 {
		fields = fields[:10]
	}
	return fields
}

func payloadFieldNames(p *models.ChunkPayload) []string {
	fields := []string{"document_id", "chunk_index", "token_count", "document_type",
		"title", "publication_date", "source", "url"}
	switch {
	case p.Opinion != nil:
		fields = append(fields, "case_name", "citation", "opinion_type", "justice",
			"section_label", "summary", "legal_topics", "holding")
	case p.Order != nil:
		fields = append(fields, "document_number", "executive_order_number", "president",
			"signing_date", "chunk_type", "section_title", "summary", "policy_topics")
	}
	return fields
}

func validateItem(p *models.ChunkPayload, vector []float32, dim int) error {
	if p.ID == "" {
		return errors.New("payload has no id")
	}
	if len(p.ID) > maxIDLength {
		return fmt.Errorf("id longer than %d bytes", maxIDLength)
	}
	if len(vector) != dim {
		return fmt.Errorf("vector has dimension %d, collection wants %d", len(vector), dim)
	}
	return nil
}

// resultColumns extracts the id, text and metadata columns from a result or
// search field set.
func resultColumns(fields []entity.Column) (ids, texts []string, metas [][]byte, err error) {
	byName := map[string]entity.Column{}
	for _, col := range fields {
		byName[col.Name()] = col
	}
	idCol, ok := byName[fieldID].(*entity.ColumnVarChar)
	if !ok {
		return nil, nil, nil, errors.New("result is missing the id column")
	}
	ids = idCol.Data()

	if textCol, ok := byName[fieldText].(*entity.ColumnVarChar); ok {
		texts = textCol.Data()
	} else {
		texts = make([]string, len(ids))
	}
	if metaCol, ok := byName[fieldMetadata].(*entity.ColumnJSONBytes); ok {
		metas = metaCol.Data()
	} else {
		return nil, nil, nil, errors.New("result is missing the metadata column")
	}
	if len(texts) != len(ids) || len(metas) != len(ids) {
		return nil, nil, nil, errors.New("result columns have mismatched lengths")
	}
	return ids, texts, metas, nil
}

// truncateBytes bounds the stored text to the VarChar column capacity on a
// rune boundary.
func truncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
