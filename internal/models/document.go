package models

import "fmt"

// DocumentType discriminates the two corpora the system ingests.
type DocumentType string

const (
	DocumentTypeCourtOpinion   DocumentType = "court_opinion"
	DocumentTypeExecutiveOrder DocumentType = "executive_order"
)

// Collection names, one vector collection per corpus.
const (
	CollectionCourtOpinions   = "court_opinions"
	CollectionExecutiveOrders = "executive_orders"
)

// Collection returns the vector collection that stores chunks of this type.
func (t DocumentType) Collection() string {
	switch t {
	case DocumentTypeCourtOpinion:
		return CollectionCourtOpinions
	case DocumentTypeExecutiveOrder:
		return CollectionExecutiveOrders
	}
	return ""
}

// DocumentTypeForCollection is the inverse of DocumentType.Collection.
func DocumentTypeForCollection(collection string) (DocumentType, error) {
	switch collection {
	case CollectionCourtOpinions:
		return DocumentTypeCourtOpinion, nil
	case CollectionExecutiveOrders:
		return DocumentTypeExecutiveOrder, nil
	}
	return "", fmt.Errorf("unknown collection %q", collection)
}

// Document is a fetched source document, normalized to plain text.
// Exactly one of Opinion or Order is set, matching Type.
type Document struct {
	ID              string
	Type            DocumentType
	Title           string
	PublicationDate string // ISO date; decision date for opinions, signing date for orders
	Source          string
	URL             string
	Text            string

	Opinion *OpinionInfo
	Order   *OrderInfo
}

// OpinionInfo carries the cluster-level fields of a Supreme Court opinion.
type OpinionInfo struct {
	ClusterID    int64
	CaseName     string
	Citation     string // Bluebook form, e.g. "601 U.S. 416 (2024)"
	Judges       string
	PerCuriam    bool
	VoteMajority int // 0 when unknown
	VoteMinority int
}

// OrderInfo carries the Federal Register fields of an Executive Order.
type OrderInfo struct {
	DocumentNumber       string
	ExecutiveOrderNumber string
	President            string
	SigningDate          string
	PublicationDate      string // Federal Register publication date
	Citation             string // e.g. "89 FR 12345"
	Agencies             []string
	RawTextURL           string
}

// Validate checks that the variant pointer matches the declared type.
func (d *Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document has no id")
	}
	switch d.Type {
	case DocumentTypeCourtOpinion:
		if d.Opinion == nil || d.Order != nil {
			return fmt.Errorf("document %s: court_opinion requires opinion info only", d.ID)
		}
	case DocumentTypeExecutiveOrder:
		if d.Order == nil || d.Opinion != nil {
			return fmt.Errorf("document %s: executive_order requires order info only", d.ID)
		}
	default:
		return fmt.Errorf("document %s: unknown type %q", d.ID, d.Type)
	}
	return nil
}
