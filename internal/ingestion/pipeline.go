// Package ingestion runs the fetch → chunk → enrich → embed → upsert
// pipeline for one corpus, with resumable per-document progress.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"govreporter/internal/apis"
	"govreporter/internal/database/milvus"
	"govreporter/internal/database/progress"
	"govreporter/internal/extractor"
	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

// Stage timeouts. Each document stage gets its own deadline so one stuck
// upstream call cannot hold a worker forever.
const (
	fetchTimeout   = 30 * time.Second
	extractTimeout = 60 * time.Second
	embedTimeout   = 60 * time.Second
	upsertTimeout  = 30 * time.Second
)

// Chunker splits normalized document text into chunks.
type Chunker interface {
	Chunk(text string) []models.Chunk
}

// Embedder is the batch embedding surface the flusher uses.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, []int)
	Dimensions() int
}

// Options selects the document window and batch shape of one run.
type Options struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	BatchSize int    `json:"batch_size"`
	Workers   int    `json:"workers"`
	DryRun    bool   `json:"dry_run"`
}

// Summary is the final tally of a run.
type Summary struct {
	Discovered  int
	Completed   int
	Failed      int
	Skipped     int
	Elapsed     time.Duration
	Interrupted bool
}

// Pipeline wires one corpus end to end.
type Pipeline struct {
	fetcher   apis.Fetcher
	chunker   Chunker
	extractor extractor.Extractor
	embedder  Embedder
	store     milvus.Store
	progress  *progress.Store
	log       *logger.Logger
	opts      Options
}

// New assembles a pipeline. BatchSize and Workers fall back to 50 and 4.
func New(
	fetcher apis.Fetcher,
	chunker Chunker,
	ex extractor.Extractor,
	embedder Embedder,
	store milvus.Store,
	prog *progress.Store,
	opts Options,
	log *logger.Logger,
) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Pipeline{
		fetcher:   fetcher,
		chunker:   chunker,
		extractor: ex,
		embedder:  embedder,
		store:     store,
		progress:  prog,
		log:       log,
		opts:      opts,
	}
}

// bundle is one processed document waiting for the flusher.
type bundle struct {
	id       string
	started  time.Time
	payloads []*models.ChunkPayload
}

// Run executes the pipeline until the id stream is exhausted or ctx is
// cancelled. Per-document failures are recorded and never abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()
	collection := p.fetcher.DocumentType().Collection()

	if !p.opts.DryRun {
		if err := p.store.EnsureCollection(ctx, collection, p.embedder.Dimensions()); err != nil {
			return nil, fmt.Errorf("prepare collection %s: %w", collection, err)
		}
	}

	runID, err := p.progress.StartRun(p.opts)
	if err != nil {
		return nil, err
	}

	mon := newMonitor(p.log)
	ids := make(chan string)
	bundles := make(chan *bundle)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ids)
		return p.fetcher.ListIDs(gctx, p.opts.Start, p.opts.End, func(id string) error {
			if err := p.progress.AddPending(id); err != nil {
				return err
			}
			mon.discovered()
			select {
			case ids <- id:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	})

	var workers sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			return p.worker(gctx, collection, ids, bundles, mon)
		})
	}
	go func() {
		workers.Wait()
		close(bundles)
	}()

	g.Go(func() error {
		return p.flusher(gctx, collection, bundles, mon)
	})

	runErr := g.Wait()

	summary := mon.summary()
	summary.Elapsed = time.Since(started)
	summary.Interrupted = errors.Is(runErr, context.Canceled) || ctx.Err() != nil

	status := progress.RunCompleted
	switch {
	case summary.Interrupted:
		status = progress.RunInterrupted
	case runErr != nil:
		status = progress.RunFailed
	}
	if err := p.progress.EndRun(runID, status); err != nil {
		p.log.WithError(err).Warn("could not record run end")
	}

	if runErr != nil && !summary.Interrupted {
		return summary, runErr
	}
	return summary, nil
}

func (p *Pipeline) worker(ctx context.Context, collection string, ids <-chan string, out chan<- *bundle, mon *monitor) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-ids:
			if !ok {
				return nil
			}
			if err := p.processOne(ctx, collection, id, out, mon); err != nil {
				return err
			}
		}
	}
}

// processOne handles a single document. Only context errors propagate;
// everything else becomes a recorded per-document failure.
func (p *Pipeline) processOne(ctx context.Context, collection, id string, out chan<- *bundle, mon *monitor) error {
	log := p.log.WithField("document_id", id)

	claimed, err := p.progress.Claim(id)
	if err != nil {
		return err
	}
	if !claimed {
		mon.skip()
		return nil
	}
	started := time.Now()

	if !p.opts.DryRun {
		exists, err := p.store.Exists(ctx, collection, models.ChunkID(id, 0))
		if err != nil {
			log.WithError(err).Warn("duplicate probe failed, processing anyway")
		} else if exists {
			if err := p.progress.Complete(id, time.Since(started)); err != nil {
				return err
			}
			mon.skip()
			return nil
		}
	}

	doc, err := p.fetchDoc(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.failDoc(id, started, mon, fmt.Errorf("fetch: %w", err))
	}

	chunks := p.chunker.Chunk(doc.Text)
	if len(chunks) == 0 {
		// Nothing to index; done.
		if err := p.progress.Complete(id, time.Since(started)); err != nil {
			return err
		}
		mon.complete(time.Since(started))
		log.Info("document has no text, completed with zero chunks")
		return nil
	}

	payloads, err := p.buildPayloads(ctx, doc, chunks)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.failDoc(id, started, mon, err)
	}

	select {
	case out <- &bundle{id: id, started: started, payloads: payloads}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) fetchDoc(ctx context.Context, id string) (*models.Document, error) {
	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	return p.fetcher.Fetch(fctx, id)
}

// buildPayloads runs enrichment once per document and attaches it to every
// chunk payload.
func (p *Pipeline) buildPayloads(ctx context.Context, doc *models.Document, chunks []models.Chunk) ([]*models.ChunkPayload, error) {
	ectx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	payloads := make([]*models.ChunkPayload, 0, len(chunks))
	switch doc.Type {
	case models.DocumentTypeCourtOpinion:
		enrichment, err := p.extractor.ExtractOpinion(ectx, doc)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		for _, c := range chunks {
			payloads = append(payloads, models.NewOpinionPayload(doc, c, enrichment))
		}
	case models.DocumentTypeExecutiveOrder:
		enrichment, err := p.extractor.ExtractOrder(ectx, doc)
		if err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		for _, c := range chunks {
			payloads = append(payloads, models.NewOrderPayload(doc, c, enrichment))
		}
	default:
		return nil, fmt.Errorf("unknown document type %q", doc.Type)
	}
	return payloads, nil
}

func (p *Pipeline) failDoc(id string, started time.Time, mon *monitor, cause error) error {
	p.log.WithField("document_id", id).WithError(cause).Warn("document failed")
	mon.fail()
	return p.progress.Fail(id, cause.Error(), time.Since(started))
}

// flusher accumulates bundles and lands them in batches. It is the only
// goroutine that talks to the embedder and the vector store, which keeps
// batch sizes meaningful.
func (p *Pipeline) flusher(ctx context.Context, collection string, bundles <-chan *bundle, mon *monitor) error {
	batch := make([]*bundle, 0, p.opts.BatchSize)

	flush := func(fctx context.Context) error {
		if len(batch) == 0 {
			return nil
		}
		err := p.flushBatch(fctx, collection, batch, mon)
		batch = batch[:0]
		if err != nil {
			return err
		}
		mon.logProgress()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			// Drain what we have so completed work is not lost. The run
			// context is already dead, so the final flush gets its own
			// bounded one.
			drainCtx, cancel := context.WithTimeout(context.Background(), embedTimeout+upsertTimeout)
			flushErr := flush(drainCtx)
			cancel()
			if flushErr != nil {
				return flushErr
			}
			return ctx.Err()
		case b, ok := <-bundles:
			if !ok {
				return flush(ctx)
			}
			batch = append(batch, b)
			if len(batch) >= p.opts.BatchSize {
				if err := flush(ctx); err != nil {
					return err
				}
			}
		}
	}
}

func (p *Pipeline) flushBatch(ctx context.Context, collection string, batch []*bundle, mon *monitor) error {
	if p.opts.DryRun {
		for _, b := range batch {
			if err := p.progress.Complete(b.id, time.Since(b.started)); err != nil {
				return err
			}
			mon.complete(time.Since(b.started))
		}
		return nil
	}

	var payloads []*models.ChunkPayload
	var texts []string
	owner := make([]int, 0) // payload index -> batch index
	for bi, b := range batch {
		for _, pl := range b.payloads {
			payloads = append(payloads, pl)
			texts = append(texts, pl.Text)
			owner = append(owner, bi)
		}
	}

	embedCtx, cancelEmbed := context.WithTimeout(ctx, embedTimeout)
	vectors, failedIdx := p.embedder.EmbedBatch(embedCtx, texts)
	cancelEmbed()

	// Documents with any zero-vector chunk fail; a later run retries them.
	docErr := make(map[int]string)
	for _, i := range failedIdx {
		docErr[owner[i]] = "embedding failed for chunk " + payloads[i].ID
	}

	upsertCtx, cancelUpsert := context.WithTimeout(ctx, upsertTimeout)
	report, err := p.store.BatchUpsert(upsertCtx, collection, payloads, vectors)
	cancelUpsert()
	if err != nil {
		// The whole batch missed the store; fail every document in it.
		for _, b := range batch {
			if ferr := p.progress.Fail(b.id, "upsert: "+err.Error(), time.Since(b.started)); ferr != nil {
				return ferr
			}
			mon.fail()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.WithError(err).Error("batch upsert failed")
		return nil
	}

	if len(report.Errors) > 0 {
		byID := make(map[string]int, len(payloads))
		for i, pl := range payloads {
			byID[pl.ID] = owner[i]
		}
		for _, ie := range report.Errors {
			if bi, ok := byID[ie.ID]; ok {
				docErr[bi] = "upsert: " + ie.Err.Error()
			}
		}
	}

	for bi, b := range batch {
		if reason, bad := docErr[bi]; bad {
			if err := p.progress.Fail(b.id, reason, time.Since(b.started)); err != nil {
				return err
			}
			mon.fail()
			continue
		}
		if err := p.progress.Complete(b.id, time.Since(b.started)); err != nil {
			return err
		}
		mon.complete(time.Since(b.started))
	}

	p.log.WithPayload(map[string]interface{}{
		"collection": collection,
		"documents":  len(batch),
		"chunks":     report.Written,
		"skipped":    report.Skipped,
	}).Info("batch flushed")
	return nil
}

// Describe renders the run summary for humans.
func (s *Summary) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "processed %d documents: %d completed, %d failed, %d skipped in %s",
		s.Discovered, s.Completed, s.Failed, s.Skipped, s.Elapsed.Round(time.Second))
	if s.Interrupted {
		b.WriteString(" (interrupted)")
	}
	return b.String()
}
