package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"govreporter/internal/config"
	"govreporter/internal/models"
)

func TestExitMapping(t *testing.T) {
	assert.Equal(t, ExitOK, Exit(nil))
	assert.Equal(t, ExitUsage, Exit(fmt.Errorf("%w: bad flag", ErrUsage)))
	assert.Equal(t, ExitConfig, Exit(fmt.Errorf("%w: OPENAI_API_KEY missing", config.ErrInvalid)))
	assert.Equal(t, ExitInterrupted, Exit(ErrInterrupted))
	assert.Equal(t, ExitRuntime, Exit(errors.New("milvus down")))
}

func TestValidateWindow(t *testing.T) {
	assert.NoError(t, validateWindow("2024-01-01", ""))
	assert.NoError(t, validateWindow("2024-01-01", "2024-12-31"))

	tests := []struct {
		name       string
		start, end string
	}{
		{"missing start", "", "2024-12-31"},
		{"bad start format", "01/02/2024", ""},
		{"bad end format", "2024-01-01", "tomorrow"},
		{"start after end", "2024-12-31", "2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWindow(tt.start, tt.end)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}
}

func TestCollectionsFor(t *testing.T) {
	both, err := collectionsFor("all")
	assert.NoError(t, err)
	assert.Len(t, both, 2)

	one, err := collectionsFor(models.CollectionCourtOpinions)
	assert.NoError(t, err)
	assert.Equal(t, []string{models.CollectionCourtOpinions}, one)

	_, err = collectionsFor("everything")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestQueryTitle(t *testing.T) {
	opinion := &models.ChunkPayload{
		Title:   "Dobbs v. Jackson",
		Opinion: &models.OpinionPayload{Citation: "597 U.S. 215 (2022)"},
	}
	assert.Equal(t, "Dobbs v. Jackson, 597 U.S. 215 (2022)", queryTitle(opinion))

	order := &models.ChunkPayload{
		Title: "Tackling the Climate Crisis",
		Order: &models.OrderPayload{ExecutiveOrderNumber: "14008"},
	}
	assert.Equal(t, "EO 14008: Tackling the Climate Crisis", queryTitle(order))

	bare := &models.ChunkPayload{Title: "Untitled"}
	assert.Equal(t, "Untitled", queryTitle(bare))
}

func TestRandomUnitVectorNormalized(t *testing.T) {
	v := randomUnitVector(16)
	assert.Len(t, v, 16)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}
