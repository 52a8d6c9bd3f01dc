package milvus

import (
	"fmt"
	"strings"

	"govreporter/internal/models"
)

// compileFilter translates the typed filter AST into a Milvus boolean
// expression. Scalar and array predicates address keys of the metadata JSON
// column; date ranges address the top-level publication_date column, whose
// ISO format makes lexicographic comparison equal to date comparison.
func compileFilter(f *models.Filter) (string, error) {
	if f.IsEmpty() {
		return "", nil
	}
	parts := make([]string, 0, len(f.Conditions))
	for _, cond := range f.Conditions {
		expr, err := compileCondition(cond)
		if err != nil {
			return "", err
		}
		if expr != "" {
			parts = append(parts, expr)
		}
	}
	return strings.Join(parts, " and "), nil
}

func compileCondition(cond models.Condition) (string, error) {
	switch c := cond.(type) {
	case models.FieldEquals:
		return fmt.Sprintf(`metadata["%s"] == %s`, c.Field, quote(c.Value)), nil
	case models.FieldIn:
		if len(c.Values) == 0 {
			return "", fmt.Errorf("filter: empty value set for field %s", c.Field)
		}
		return fmt.Sprintf(`metadata["%s"] in %s`, c.Field, quoteList(c.Values)), nil
	case models.ArrayContainsAny:
		if len(c.Values) == 0 {
			return "", fmt.Errorf("filter: empty value set for field %s", c.Field)
		}
		return fmt.Sprintf(`json_contains_any(metadata["%s"], %s)`, c.Field, quoteList(c.Values)), nil
	case models.DateRange:
		var parts []string
		if c.From != "" {
			parts = append(parts, fmt.Sprintf(`%s >= %s`, c.Field, quote(c.From)))
		}
		if c.To != "" {
			parts = append(parts, fmt.Sprintf(`%s <= %s`, c.Field, quote(c.To)))
		}
		if len(parts) == 0 {
			return "", fmt.Errorf("filter: date range on %s has no bounds", c.Field)
		}
		return strings.Join(parts, " and "), nil
	default:
		return "", fmt.Errorf("filter: unsupported condition type %T", cond)
	}
}

var exprEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + exprEscaper.Replace(s) + `"`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
