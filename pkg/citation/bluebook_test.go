package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfficialReporterPreferred(t *testing.T) {
	citations := []Citation{
		{Volume: 144, Reporter: "S. Ct.", Page: "1474", Type: 2},
		{Volume: 601, Reporter: "U.S.", Page: "416", Type: TypeOfficial},
	}
	assert.Equal(t, "601 U.S. 416 (2024)", Bluebook(citations, "2024-05-16"))
}

func TestFallsBackToFirstCitation(t *testing.T) {
	citations := []Citation{
		{Volume: 144, Reporter: "S. Ct.", Page: "1474", Type: 2},
		{Volume: 219, Reporter: "L. Ed. 2d", Page: "125", Type: 3},
	}
	assert.Equal(t, "144 S. Ct. 1474 (2024)", Bluebook(citations, "2024-05-16"))
}

func TestIncompleteCitationsSkipped(t *testing.T) {
	citations := []Citation{
		{Volume: 601, Reporter: "U.S.", Type: TypeOfficial}, // page not yet assigned
		{Volume: 144, Reporter: "S. Ct.", Page: "1474", Type: 2},
	}
	assert.Equal(t, "144 S. Ct. 1474 (2024)", Bluebook(citations, "2024-05-16"))
}

func TestNoUsableCitation(t *testing.T) {
	assert.Equal(t, "", Bluebook(nil, "2024-05-16"))
	assert.Equal(t, "", Bluebook([]Citation{{Reporter: "U.S."}}, "2024-05-16"))
}

func TestMissingYearOmitsParens(t *testing.T) {
	citations := []Citation{{Volume: 601, Reporter: "U.S.", Page: "416", Type: TypeOfficial}}
	assert.Equal(t, "601 U.S. 416", Bluebook(citations, ""))
	assert.Equal(t, "601 U.S. 416", Bluebook(citations, "n/a"))
}

func TestFull(t *testing.T) {
	citations := []Citation{{Volume: 601, Reporter: "U.S.", Page: "416", Type: TypeOfficial}}
	assert.Equal(t, "CFPB v. CFSA, 601 U.S. 416 (2024)", Full("CFPB v. CFSA", citations, "2024-05-16"))
	assert.Equal(t, "CFPB v. CFSA", Full("CFPB v. CFSA", nil, "2024-05-16"))
	assert.Equal(t, "601 U.S. 416 (2024)", Full("", citations, "2024-05-16"))
}
