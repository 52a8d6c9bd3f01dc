package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"govreporter/internal/database/milvus"
	"govreporter/internal/models"
)

// shaper renders search hits into the text an LLM client reads. Limits come
// from configuration so operators can trade context size for detail.
type shaper struct {
	maxChunkChars int
	hintThreshold float64
	hintMaxHits   int
}

// FormatResults renders a ranked result set. Zero hits produce guidance
// rather than an error, so the model can reformulate instead of giving up.
func (s *shaper) FormatResults(query string, results []models.SearchResult) string {
	var b strings.Builder
	if len(results) == 0 {
		fmt.Fprintf(&b, "No results found for: %q\n\n", query)
		b.WriteString("Try broader search terms, fewer filters, or a wider date range. ")
		b.WriteString("Use list_collections to see what is indexed.")
		return b.String()
	}

	fmt.Fprintf(&b, "Found %d results for: %q\n", len(results), query)
	for i, r := range results {
		b.WriteString("\n")
		s.writeHit(&b, i+1, r)
	}

	if uris := s.fullDocumentHint(results); len(uris) > 0 {
		b.WriteString("\nFull documents available as resources: ")
		b.WriteString(strings.Join(uris, ", "))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *shaper) writeHit(b *strings.Builder, n int, r models.SearchResult) {
	p := r.Payload
	fmt.Fprintf(b, "[%d] score=%.2f — %s\n", n, r.Score, titleLine(p))
	if ctxLine := contextLine(p); ctxLine != "" {
		b.WriteString(ctxLine)
		b.WriteString("\n")
	}

	text := p.Text
	if s.maxChunkChars > 0 && utf8.RuneCountInString(text) > s.maxChunkChars {
		text = truncateRunes(text, s.maxChunkChars) + "…\n(truncated — use get_document_by_id for the full chunk)"
	}
	b.WriteString(text)
	b.WriteString("\n")

	for _, line := range enrichmentLines(p) {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

// titleLine is the one-line identity of a hit.
func titleLine(p *models.ChunkPayload) string {
	switch {
	case p.Opinion != nil:
		name := p.Opinion.CaseName
		if name == "" {
			name = p.Title
		}
		if p.Opinion.Citation != "" {
			return name + ", " + p.Opinion.Citation
		}
		return name
	case p.Order != nil:
		if p.Order.ExecutiveOrderNumber != "" {
			return fmt.Sprintf("EO %s: %s", p.Order.ExecutiveOrderNumber, p.Title)
		}
		return p.Title
	}
	return p.Title
}

// contextLine places the chunk inside its document.
func contextLine(p *models.ChunkPayload) string {
	switch {
	case p.Opinion != nil:
		var parts []string
		sec := p.Opinion.Section
		if sec.OpinionType != "" {
			parts = append(parts, sec.OpinionType.Label())
		}
		if sec.Justice != "" {
			parts = append(parts, "Justice "+sec.Justice)
		}
		if sec.SectionLabel != "" {
			parts = append(parts, "Section "+sec.SectionLabel)
		}
		return strings.Join(parts, " — ")
	case p.Order != nil:
		var parts []string
		sec := p.Order.Section
		switch {
		case sec.SubsectionLabel != "":
			parts = append(parts, sec.SubsectionLabel)
		case sec.SectionTitle != "":
			parts = append(parts, sec.SectionTitle)
		case sec.ChunkType == models.OrderHeader:
			parts = append(parts, "Preamble")
		case sec.ChunkType == models.OrderTail:
			parts = append(parts, "Closing")
		}
		if p.Order.President != "" {
			signed := "Signed by President " + p.Order.President
			if p.Order.SigningDate != "" {
				signed += ", " + p.Order.SigningDate
			}
			parts = append(parts, signed)
		}
		return strings.Join(parts, " — ")
	}
	return ""
}

// enrichmentLines picks the extraction fields worth surfacing inline.
func enrichmentLines(p *models.ChunkPayload) []string {
	var lines []string
	switch {
	case p.Opinion != nil:
		if len(p.Opinion.LegalTopics) > 0 {
			lines = append(lines, "Topics: "+strings.Join(p.Opinion.LegalTopics, ", "))
		}
		if p.Opinion.Holding != "" {
			lines = append(lines, "Holding: "+p.Opinion.Holding)
		}
	case p.Order != nil:
		if len(p.Order.PolicyTopics) > 0 {
			lines = append(lines, "Topics: "+strings.Join(p.Order.PolicyTopics, ", "))
		}
		if p.Order.Summary != "" {
			lines = append(lines, "Summary: "+p.Order.Summary)
		}
	}
	return lines
}

// fullDocumentHint lists resource URIs when the result set is small and
// uniformly strong, the case where reading whole documents pays off.
func (s *shaper) fullDocumentHint(results []models.SearchResult) []string {
	if len(results) == 0 || len(results) > s.hintMaxHits {
		return nil
	}
	seen := make(map[string]bool)
	var uris []string
	for _, r := range results {
		if float64(r.Score) <= s.hintThreshold {
			return nil
		}
		uri := resourceURI(r.Payload)
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		uris = append(uris, uri)
	}
	return uris
}

// resourceURI maps a payload to the template that serves its full document.
func resourceURI(p *models.ChunkPayload) string {
	switch p.Type {
	case models.DocumentTypeCourtOpinion:
		return "opinion://" + p.SourceDocumentID()
	case models.DocumentTypeExecutiveOrder:
		return "order://" + p.SourceDocumentID()
	}
	return ""
}

// FormatChunk renders one payload in full for get_document_by_id.
func FormatChunk(r *models.SearchResult) string {
	p := r.Payload
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", titleLine(p))
	if ctxLine := contextLine(p); ctxLine != "" {
		b.WriteString(ctxLine)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Chunk %d of document %s (%d tokens)\n", p.ChunkIndex, p.DocumentID, p.TokenCount)
	if p.PublicationDate != "" {
		fmt.Fprintf(&b, "Date: %s\n", p.PublicationDate)
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", p.URL)
	}
	b.WriteString("\n")
	b.WriteString(p.Text)
	b.WriteString("\n")
	for _, line := range enrichmentLines(p) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatCollections renders the inventory listing. Per-collection failures
// appear inline so one broken collection does not hide the others.
func FormatCollections(infos []milvus.CollectionInfo, listErr error) string {
	if listErr != nil {
		return "Could not list collections: " + listErr.Error()
	}
	if len(infos) == 0 {
		return "No collections found. Run an ingestion first."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d collections:\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(&b, "\n%s\n", info.Name)
		fmt.Fprintf(&b, "  chunks: %d\n", info.Count)
		fmt.Fprintf(&b, "  dimension: %d (%s)\n", info.Dimension, info.Metric)
		if len(info.SampleFields) > 0 {
			fmt.Fprintf(&b, "  payload fields: %s\n", strings.Join(info.SampleFields, ", "))
		}
	}
	return b.String()
}

// truncateRunes keeps the first max characters.
func truncateRunes(s string, max int) string {
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// clampLimit normalizes a requested result count.
func clampLimit(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}
