// Package extractor produces document-level enrichment records by driving a
// reasoning model in JSON mode. Extraction is best-effort: schema failures
// degrade to a fallback record and citation claims the source text does not
// back are dropped.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"govreporter/internal/llm"
	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

// Extractor produces the per-document enrichment stored on every chunk.
type Extractor interface {
	ExtractOpinion(ctx context.Context, doc *models.Document) (*models.OpinionEnrichment, error)
	ExtractOrder(ctx context.Context, doc *models.Document) (*models.OrderEnrichment, error)
}

const (
	opinionMaxTokens = 2000
	orderMaxTokens   = 1500

	// maxTopics caps the topic lists the model returns.
	maxTopics = 8

	// analysisLimit bounds how much document text is sent to the model.
	analysisLimit = 60000

	maxAttempts = 3
)

// strictRetrySuffix sharpens the instruction after a malformed reply.
const strictRetrySuffix = "\n\nRespond with ONLY a JSON object. No prose, no code fences, no explanations."

// LLMExtractor drives an llm.Client once per document.
type LLMExtractor struct {
	client    llm.Client
	baseDelay time.Duration
	log       *logger.Logger
}

// New creates an extractor on the given provider client.
func New(client llm.Client, log *logger.Logger) *LLMExtractor {
	return &LLMExtractor{client: client, baseDelay: time.Second, log: log}
}

// ExtractOpinion enriches one Supreme Court opinion. A model or schema
// failure returns the fallback record and a nil error; ingestion proceeds.
func (e *LLMExtractor) ExtractOpinion(ctx context.Context, doc *models.Document) (*models.OpinionEnrichment, error) {
	var out models.OpinionEnrichment
	err := e.extract(ctx, opinionSystemPrompt,
		"Extract metadata from this Supreme Court opinion:\n\n"+truncate(doc.Text, analysisLimit),
		opinionMaxTokens, &out)
	if err != nil {
		e.warnFallback(doc.ID, err)
		return models.FallbackOpinionEnrichment(), nil
	}

	out.LegalTopics = capList(out.LegalTopics, maxTopics)
	out.ConstitutionCited = e.validateCitations(doc, out.ConstitutionCited, "constitution_cited")
	out.StatutesCited = e.validateCitations(doc, out.StatutesCited, "statutes_cited")
	return &out, nil
}

// ExtractOrder enriches one Executive Order.
func (e *LLMExtractor) ExtractOrder(ctx context.Context, doc *models.Document) (*models.OrderEnrichment, error) {
	var out models.OrderEnrichment
	err := e.extract(ctx, orderSystemPrompt,
		"Extract metadata from this Executive Order:\n\n"+truncate(doc.Text, analysisLimit),
		orderMaxTokens, &out)
	if err != nil {
		e.warnFallback(doc.ID, err)
		return models.FallbackOrderEnrichment(), nil
	}

	out.PolicyTopics = padTopics(capList(out.PolicyTopics, maxTopics))
	out.LegalAuthorities = e.validateCitations(doc, out.LegalAuthorities, "legal_authorities")
	return &out, nil
}

// extract calls the model with transient-error retries, then retries once
// more with a stricter prompt when the reply does not decode.
func (e *LLMExtractor) extract(ctx context.Context, system, user string, maxTokens int, out interface{}) error {
	reply, err := e.complete(ctx, system, user, maxTokens)
	if err != nil {
		return err
	}
	if decodeErr := decodeJSON(reply, out); decodeErr != nil {
		e.log.WithError(decodeErr).Warn("extraction reply failed schema validation, retrying with strict prompt")
		reply, err = e.complete(ctx, system+strictRetrySuffix, user, maxTokens)
		if err != nil {
			return err
		}
		if decodeErr = decodeJSON(reply, out); decodeErr != nil {
			return fmt.Errorf("extraction reply invalid after strict retry: %w", decodeErr)
		}
	}
	return nil
}

// complete retries transient upstream failures with exponential backoff.
func (e *LLMExtractor) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
		reply, err := e.client.CompleteJSON(ctx, system, user, maxTokens)
		if err == nil {
			return reply, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("extraction gave up after %d attempts: %w", maxAttempts, lastErr)
}

// validateCitations drops entries that do not occur in the source text after
// whitespace normalization. The model must never put words in a document's
// mouth.
func (e *LLMExtractor) validateCitations(doc *models.Document, cites []string, field string) []string {
	if len(cites) == 0 {
		return cites
	}
	haystack := squashSpace(doc.Text)
	kept := cites[:0]
	for _, cite := range cites {
		needle := squashSpace(cite)
		if needle != "" && strings.Contains(haystack, needle) {
			kept = append(kept, cite)
			continue
		}
		e.log.WithPayload(map[string]interface{}{
			"document_id": doc.ID,
			"field":       field,
			"citation":    cite,
		}).Warn("dropping citation not found in source text")
	}
	return kept
}

func (e *LLMExtractor) warnFallback(docID string, err error) {
	e.log.WithError(err).WithField("document_id", docID).
		Warn("metadata extraction failed, storing fallback enrichment")
}

// decodeJSON tolerates code fences some models wrap JSON in.
func decodeJSON(reply string, out interface{}) error {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(reply)), out)
}

var spaceNormalizer = strings.NewReplacer("\n", " ", "\t", " ", "\r", " ")

// squashSpace lowers whitespace runs to single spaces so citation matching
// survives line wrapping.
func squashSpace(s string) string {
	s = spaceNormalizer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func capList(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}

// padTopics tops a short order topic list up with the generic policy tags.
func padTopics(topics []string) []string {
	fillers := []string{"federal policy", "executive action", "government regulation"}
	for _, f := range fillers {
		if len(topics) >= 5 {
			break
		}
		if !containsFold(topics, f) {
			topics = append(topics, f)
		}
	}
	return topics
}

func containsFold(items []string, want string) bool {
	for _, item := range items {
		if strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
