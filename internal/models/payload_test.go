package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opinionDoc() *Document {
	return &Document{
		ID:              "9973155",
		Type:            DocumentTypeCourtOpinion,
		Title:           "Consumer Financial Protection Bureau v. Community Financial Services Assn.",
		PublicationDate: "2024-05-16",
		Source:          "courtlistener",
		URL:             "https://www.courtlistener.com/opinion/9973155/",
		Opinion: &OpinionInfo{
			ClusterID: 9513930,
			CaseName:  "CFPB v. Community Financial Services Assn.",
			Citation:  "601 U.S. 416 (2024)",
		},
	}
}

func orderDoc() *Document {
	return &Document{
		ID:              "2025-01953",
		Type:            DocumentTypeExecutiveOrder,
		Title:           "Protecting the United States From Foreign Terrorists",
		PublicationDate: "2025-01-20",
		Source:          "federal_register",
		URL:             "https://www.federalregister.gov/d/2025-01953",
		Order: &OrderInfo{
			DocumentNumber:       "2025-01953",
			ExecutiveOrderNumber: "14161",
			President:            "Donald Trump",
			SigningDate:          "2025-01-20",
			Citation:             "90 FR 8451",
		},
	}
}

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("9973155", 0)
	b := ChunkID("9973155", 0)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, ChunkID("9973155", 1))
	assert.NotEqual(t, a, ChunkID("9973156", 0))
}

func TestOpinionPayloadRoundTrip(t *testing.T) {
	chunk := Chunk{
		Text:       "The Appropriations Clause requires...",
		Index:      2,
		TokenCount: 612,
		Opinion: &OpinionSectionInfo{
			OpinionType:  OpinionMajority,
			Justice:      "Thomas",
			SectionLabel: "II.A",
		},
	}
	enrich := &OpinionEnrichment{
		Summary:           "The Court held that the CFPB funding mechanism is constitutional.",
		LegalTopics:       []string{"appropriations", "separation of powers"},
		ConstitutionCited: []string{"Article I, Section 9"},
		StatutesCited:     []string{"12 U.S.C. § 5497"},
		Holding:           "The funding mechanism satisfies the Appropriations Clause.",
		VoteBreakdown:     "7-2",
	}
	p := NewOpinionPayload(opinionDoc(), chunk, enrich)
	require.NotNil(t, p.Opinion)
	assert.Equal(t, ChunkID("9973155", 2), p.ID)

	raw, err := p.MetadataJSON()
	require.NoError(t, err)

	back, err := PayloadFromMetadata(p.ID, p.Text, raw)
	require.NoError(t, err)
	require.NotNil(t, back.Opinion)
	assert.Nil(t, back.Order)
	assert.Equal(t, p.DocumentID, back.DocumentID)
	assert.Equal(t, p.ChunkIndex, back.ChunkIndex)
	assert.Equal(t, p.TokenCount, back.TokenCount)
	assert.Equal(t, p.Title, back.Title)
	assert.Equal(t, p.PublicationDate, back.PublicationDate)
	assert.Equal(t, OpinionMajority, back.Opinion.Section.OpinionType)
	assert.Equal(t, "Thomas", back.Opinion.Section.Justice)
	assert.Equal(t, "II.A", back.Opinion.Section.SectionLabel)
	assert.Equal(t, enrich.Summary, back.Opinion.Summary)
	assert.Equal(t, enrich.LegalTopics, back.Opinion.LegalTopics)
	assert.Equal(t, enrich.StatutesCited, back.Opinion.StatutesCited)
	assert.Equal(t, "7-2", back.Opinion.VoteBreakdown)
	assert.Equal(t, "601 U.S. 416 (2024)", back.Opinion.Citation)
}

func TestOrderPayloadRoundTrip(t *testing.T) {
	chunk := Chunk{
		Text:       "Sec. 2. Policy. It is the policy of the United States...",
		Index:      1,
		TokenCount: 301,
		Order: &OrderSectionInfo{
			ChunkType:       OrderSection,
			SectionTitle:    "Sec. 2. Policy.",
			SubsectionLabel: "Sec. 2(a)",
		},
	}
	enrich := &OrderEnrichment{
		Summary:          "Directs agencies to vet visa applicants.",
		PolicyTopics:     []string{"immigration", "national security"},
		AgenciesImpacted: []string{"Department of State", "Department of Homeland Security"},
		LegalAuthorities: []string{"8 U.S.C. 1182(f)"},
	}
	p := NewOrderPayload(orderDoc(), chunk, enrich)
	require.NotNil(t, p.Order)

	raw, err := p.MetadataJSON()
	require.NoError(t, err)

	back, err := PayloadFromMetadata(p.ID, p.Text, raw)
	require.NoError(t, err)
	require.NotNil(t, back.Order)
	assert.Nil(t, back.Opinion)
	assert.Equal(t, "14161", back.Order.ExecutiveOrderNumber)
	assert.Equal(t, "Donald Trump", back.Order.President)
	assert.Equal(t, OrderSection, back.Order.Section.ChunkType)
	assert.Equal(t, "Sec. 2. Policy.", back.Order.Section.SectionTitle)
	assert.Equal(t, "Sec. 2(a)", back.Order.Section.SubsectionLabel)
	assert.Equal(t, enrich.AgenciesImpacted, back.Order.AgenciesImpacted)
	assert.Equal(t, "2025-01953", back.SourceDocumentID())
}

func TestPayloadWithoutVariantRejected(t *testing.T) {
	p := &ChunkPayload{ID: "x", Type: DocumentTypeCourtOpinion}
	_, err := p.MetadataJSON()
	assert.Error(t, err)

	_, err = PayloadFromMetadata("x", "", []byte(`{"document_type":"treaty"}`))
	assert.Error(t, err)
}

func TestDocumentValidate(t *testing.T) {
	doc := opinionDoc()
	require.NoError(t, doc.Validate())

	doc.Order = orderDoc().Order
	assert.Error(t, doc.Validate())

	bad := &Document{ID: "1", Type: "treaty"}
	assert.Error(t, bad.Validate())

	assert.Error(t, (&Document{}).Validate())
}

func TestCollectionMapping(t *testing.T) {
	assert.Equal(t, CollectionCourtOpinions, DocumentTypeCourtOpinion.Collection())
	assert.Equal(t, CollectionExecutiveOrders, DocumentTypeExecutiveOrder.Collection())

	dt, err := DocumentTypeForCollection(CollectionExecutiveOrders)
	require.NoError(t, err)
	assert.Equal(t, DocumentTypeExecutiveOrder, dt)

	_, err = DocumentTypeForCollection("treaties")
	assert.Error(t, err)
}
