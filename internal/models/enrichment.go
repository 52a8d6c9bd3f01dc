package models

// OpinionEnrichment is the document-level metadata extracted from an opinion
// by the LLM pass. All fields may be empty; extraction failure degrades to an
// empty record rather than blocking ingestion.
type OpinionEnrichment struct {
	Summary           string   `json:"summary"`
	LegalTopics       []string `json:"legal_topics"`
	ConstitutionCited []string `json:"constitution_cited"`
	StatutesCited     []string `json:"statutes_cited"`
	KeyQuestions      []string `json:"key_questions"`
	Holding           string   `json:"holding"`
	VoteBreakdown     string   `json:"vote_breakdown"`
}

// OrderEnrichment is the document-level metadata extracted from an executive
// order by the LLM pass.
type OrderEnrichment struct {
	Summary          string   `json:"summary"`
	PolicyTopics     []string `json:"policy_topics"`
	AgenciesImpacted []string `json:"agencies_impacted"`
	LegalAuthorities []string `json:"legal_authorities"`
	RelatedOrders    []string `json:"related_orders"`
	EconomicSectors  []string `json:"economic_sectors"`
}

// FallbackOpinionEnrichment is stored when extraction fails for good.
func FallbackOpinionEnrichment() *OpinionEnrichment {
	return &OpinionEnrichment{
		Summary:     "Unable to generate summary.",
		LegalTopics: []string{"legal", "court decision"},
		Holding:     "Unable to determine holding.",
	}
}

// FallbackOrderEnrichment is stored when extraction fails for good.
func FallbackOrderEnrichment() *OrderEnrichment {
	return &OrderEnrichment{
		Summary:      "Unable to generate summary.",
		PolicyTopics: []string{"federal policy", "executive action", "government regulation"},
	}
}
