package models

// Filter is a conjunction of predicates over payload fields. Field names are
// the flat wire keys of payloadRecord (opinion_type, president, ...). The
// vector store adapter compiles the tree into its native expression syntax.
type Filter struct {
	Conditions []Condition
}

// Condition is one predicate of a filter conjunction.
type Condition interface {
	condition()
}

// FieldEquals matches a scalar field exactly.
type FieldEquals struct {
	Field string
	Value string
}

// FieldIn matches a scalar field against a set of values.
type FieldIn struct {
	Field  string
	Values []string
}

// ArrayContainsAny matches an array field that shares at least one element
// with Values.
type ArrayContainsAny struct {
	Field  string
	Values []string
}

// DateRange bounds an ISO-date field inclusively. Either side may be empty.
type DateRange struct {
	Field string
	From  string
	To    string
}

func (FieldEquals) condition()      {}
func (FieldIn) condition()          {}
func (ArrayContainsAny) condition() {}
func (DateRange) condition()        {}

// NewFilter builds a filter from the given conditions, returning nil when
// none apply so callers can pass the result straight to a search.
func NewFilter(conds ...Condition) *Filter {
	kept := make([]Condition, 0, len(conds))
	for _, c := range conds {
		if c == nil {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil
	}
	return &Filter{Conditions: kept}
}

// IsEmpty reports whether the filter constrains anything.
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Conditions) == 0
}
