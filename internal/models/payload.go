package models

import (
	"encoding/json"
	"fmt"
)

// OpinionPayload is the opinion variant of a stored chunk: document fields,
// structural position and LLM enrichment.
type OpinionPayload struct {
	CaseName string
	Citation string
	Section  OpinionSectionInfo
	OpinionEnrichment
}

// OrderPayload is the executive-order variant of a stored chunk.
type OrderPayload struct {
	DocumentNumber       string
	ExecutiveOrderNumber string
	President            string
	SigningDate          string
	Citation             string
	Section              OrderSectionInfo
	OrderEnrichment
}

// ChunkPayload is one point in a vector collection. The variant pointers form
// a tagged union discriminated by Type; on the wire the union is flattened
// into a single JSON object so filters address plain keys like
// metadata["opinion_type"].
type ChunkPayload struct {
	ID              string
	DocumentID      string
	ChunkIndex      int
	TokenCount      int
	Text            string
	Type            DocumentType
	Title           string
	PublicationDate string
	Source          string
	URL             string

	Opinion *OpinionPayload
	Order   *OrderPayload
}

// NewOpinionPayload assembles the stored record for one opinion chunk.
func NewOpinionPayload(doc *Document, c Chunk, e *OpinionEnrichment) *ChunkPayload {
	if e == nil {
		e = &OpinionEnrichment{}
	}
	var section OpinionSectionInfo
	if c.Opinion != nil {
		section = *c.Opinion
	}
	return &ChunkPayload{
		ID:              ChunkID(doc.ID, c.Index),
		DocumentID:      doc.ID,
		ChunkIndex:      c.Index,
		TokenCount:      c.TokenCount,
		Text:            c.Text,
		Type:            DocumentTypeCourtOpinion,
		Title:           doc.Title,
		PublicationDate: doc.PublicationDate,
		Source:          doc.Source,
		URL:             doc.URL,
		Opinion: &OpinionPayload{
			CaseName:          doc.Opinion.CaseName,
			Citation:          doc.Opinion.Citation,
			Section:           section,
			OpinionEnrichment: *e,
		},
	}
}

// NewOrderPayload assembles the stored record for one executive-order chunk.
func NewOrderPayload(doc *Document, c Chunk, e *OrderEnrichment) *ChunkPayload {
	if e == nil {
		e = &OrderEnrichment{}
	}
	var section OrderSectionInfo
	if c.Order != nil {
		section = *c.Order
	}
	return &ChunkPayload{
		ID:              ChunkID(doc.ID, c.Index),
		DocumentID:      doc.ID,
		ChunkIndex:      c.Index,
		TokenCount:      c.TokenCount,
		Text:            c.Text,
		Type:            DocumentTypeExecutiveOrder,
		Title:           doc.Title,
		PublicationDate: doc.PublicationDate,
		Source:          doc.Source,
		URL:             doc.URL,
		Order: &OrderPayload{
			DocumentNumber:       doc.Order.DocumentNumber,
			ExecutiveOrderNumber: doc.Order.ExecutiveOrderNumber,
			President:            doc.Order.President,
			SigningDate:          doc.Order.SigningDate,
			Citation:             doc.Order.Citation,
			Section:              section,
			OrderEnrichment:      *e,
		},
	}
}

// SourceDocumentID returns the id usable with the matching fetcher and
// resource URI (opinion id or Federal Register document number).
func (p *ChunkPayload) SourceDocumentID() string {
	if p.Order != nil && p.Order.DocumentNumber != "" {
		return p.Order.DocumentNumber
	}
	return p.DocumentID
}

// payloadRecord is the flat wire shape stored in the metadata JSON column.
// Shared keys (citation, summary) belong to whichever variant document_type
// selects.
type payloadRecord struct {
	DocumentID      string       `json:"document_id"`
	ChunkIndex      int          `json:"chunk_index"`
	TokenCount      int          `json:"token_count"`
	DocumentType    DocumentType `json:"document_type"`
	Title           string       `json:"title"`
	PublicationDate string       `json:"publication_date"`
	Source          string       `json:"source"`
	URL             string       `json:"url,omitempty"`

	CaseName          string   `json:"case_name,omitempty"`
	Citation          string   `json:"citation,omitempty"`
	OpinionType       string   `json:"opinion_type,omitempty"`
	Justice           string   `json:"justice,omitempty"`
	SectionLabel      string   `json:"section_label,omitempty"`
	Summary           string   `json:"summary,omitempty"`
	LegalTopics       []string `json:"legal_topics,omitempty"`
	ConstitutionCited []string `json:"constitution_cited,omitempty"`
	StatutesCited     []string `json:"statutes_cited,omitempty"`
	KeyQuestions      []string `json:"key_questions,omitempty"`
	Holding           string   `json:"holding,omitempty"`
	VoteBreakdown     string   `json:"vote_breakdown,omitempty"`

	DocumentNumber       string   `json:"document_number,omitempty"`
	ExecutiveOrderNumber string   `json:"executive_order_number,omitempty"`
	President            string   `json:"president,omitempty"`
	SigningDate          string   `json:"signing_date,omitempty"`
	ChunkType            string   `json:"chunk_type,omitempty"`
	SectionTitle         string   `json:"section_title,omitempty"`
	SubsectionLabel      string   `json:"subsection_label,omitempty"`
	PolicyTopics         []string `json:"policy_topics,omitempty"`
	AgenciesImpacted     []string `json:"agencies_impacted,omitempty"`
	LegalAuthorities     []string `json:"legal_authorities,omitempty"`
	RelatedOrders        []string `json:"related_orders,omitempty"`
	EconomicSectors      []string `json:"economic_sectors,omitempty"`
}

// MetadataJSON flattens the payload for the store's JSON column. The id, text
// and vector live in their own columns and are not duplicated here.
func (p *ChunkPayload) MetadataJSON() ([]byte, error) {
	r := payloadRecord{
		DocumentID:      p.DocumentID,
		ChunkIndex:      p.ChunkIndex,
		TokenCount:      p.TokenCount,
		DocumentType:    p.Type,
		Title:           p.Title,
		PublicationDate: p.PublicationDate,
		Source:          p.Source,
		URL:             p.URL,
	}
	switch {
	case p.Opinion != nil:
		o := p.Opinion
		r.CaseName = o.CaseName
		r.Citation = o.Citation
		r.OpinionType = string(o.Section.OpinionType)
		r.Justice = o.Section.Justice
		r.SectionLabel = o.Section.SectionLabel
		r.Summary = o.Summary
		r.LegalTopics = o.LegalTopics
		r.ConstitutionCited = o.ConstitutionCited
		r.StatutesCited = o.StatutesCited
		r.KeyQuestions = o.KeyQuestions
		r.Holding = o.Holding
		r.VoteBreakdown = o.VoteBreakdown
	case p.Order != nil:
		o := p.Order
		r.DocumentNumber = o.DocumentNumber
		r.ExecutiveOrderNumber = o.ExecutiveOrderNumber
		r.President = o.President
		r.SigningDate = o.SigningDate
		r.Citation = o.Citation
		r.ChunkType = string(o.Section.ChunkType)
		r.SectionTitle = o.Section.SectionTitle
		r.SubsectionLabel = o.Section.SubsectionLabel
		r.Summary = o.Summary
		r.PolicyTopics = o.PolicyTopics
		r.AgenciesImpacted = o.AgenciesImpacted
		r.LegalAuthorities = o.LegalAuthorities
		r.RelatedOrders = o.RelatedOrders
		r.EconomicSectors = o.EconomicSectors
	default:
		return nil, fmt.Errorf("payload %s has no variant set", p.ID)
	}
	return json.Marshal(r)
}

// PayloadFromMetadata rebuilds a typed payload from the stored columns.
func PayloadFromMetadata(id, text string, metadata []byte) (*ChunkPayload, error) {
	var r payloadRecord
	if err := json.Unmarshal(metadata, &r); err != nil {
		return nil, fmt.Errorf("decode payload metadata for %s: %w", id, err)
	}
	p := &ChunkPayload{
		ID:              id,
		DocumentID:      r.DocumentID,
		ChunkIndex:      r.ChunkIndex,
		TokenCount:      r.TokenCount,
		Text:            text,
		Type:            r.DocumentType,
		Title:           r.Title,
		PublicationDate: r.PublicationDate,
		Source:          r.Source,
		URL:             r.URL,
	}
	switch r.DocumentType {
	case DocumentTypeCourtOpinion:
		p.Opinion = &OpinionPayload{
			CaseName: r.CaseName,
			Citation: r.Citation,
			Section: OpinionSectionInfo{
				OpinionType:  OpinionType(r.OpinionType),
				Justice:      r.Justice,
				SectionLabel: r.SectionLabel,
			},
			OpinionEnrichment: OpinionEnrichment{
				Summary:           r.Summary,
				LegalTopics:       r.LegalTopics,
				ConstitutionCited: r.ConstitutionCited,
				StatutesCited:     r.StatutesCited,
				KeyQuestions:      r.KeyQuestions,
				Holding:           r.Holding,
				VoteBreakdown:     r.VoteBreakdown,
			},
		}
	case DocumentTypeExecutiveOrder:
		p.Order = &OrderPayload{
			DocumentNumber:       r.DocumentNumber,
			ExecutiveOrderNumber: r.ExecutiveOrderNumber,
			President:            r.President,
			SigningDate:          r.SigningDate,
			Citation:             r.Citation,
			Section: OrderSectionInfo{
				ChunkType:       OrderChunkType(r.ChunkType),
				SectionTitle:    r.SectionTitle,
				SubsectionLabel: r.SubsectionLabel,
			},
			OrderEnrichment: OrderEnrichment{
				Summary:          r.Summary,
				PolicyTopics:     r.PolicyTopics,
				AgenciesImpacted: r.AgenciesImpacted,
				LegalAuthorities: r.LegalAuthorities,
				RelatedOrders:    r.RelatedOrders,
				EconomicSectors:  r.EconomicSectors,
			},
		}
	default:
		return nil, fmt.Errorf("payload %s has unknown document_type %q", id, r.DocumentType)
	}
	return p, nil
}

// SearchResult is one scored hit from a vector search, or an unscored point
// from a direct lookup.
type SearchResult struct {
	ID      string
	Score   float32
	Payload *ChunkPayload
}
