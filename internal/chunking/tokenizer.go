package chunking

import (
	"github.com/pkoukk/tiktoken-go"

	"govreporter/pkg/logger"
)

// TokenCounter reports how many model tokens a piece of text costs.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimateCounter approximates tokens at four characters each. It is the
// fallback when the cl100k_base encoding cannot be loaded.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// NewTokenCounter returns a cl100k_base counter, the tokenizer of the
// embedding models in use, or the length estimate when the encoding is
// unavailable.
func NewTokenCounter(log *logger.Logger) TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		if log != nil {
			log.WithError(err).Warn("cl100k_base encoding unavailable, using length estimate")
		}
		return estimateCounter{}
	}
	return &tiktokenCounter{enc: enc}
}
