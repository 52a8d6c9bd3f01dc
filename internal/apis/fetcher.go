// Package apis fetches source documents from the upstream government APIs
// and normalizes them into the internal document model.
package apis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"govreporter/internal/chunking"
	"govreporter/internal/models"
)

// UserAgent identifies this service to the upstreams.
const UserAgent = "govreporter/1.0"

// ErrEmptyDocument marks a document with no usable text in any of its
// representations. The pipeline records it as a failure without retrying.
var ErrEmptyDocument = errors.New("document has no usable text")

// Fetcher is one upstream corpus.
type Fetcher interface {
	// ListIDs streams document ids in date-ascending order, calling fn for
	// each. Pages are fetched lazily; fn returning an error stops the walk.
	ListIDs(ctx context.Context, start, end string, fn func(id string) error) error
	// Fetch downloads and normalizes one document.
	Fetch(ctx context.Context, id string) (*models.Document, error)
	// DocumentType names the corpus this fetcher serves.
	DocumentType() models.DocumentType
}

// htmlToText converts an HTML fragment to markdown-flavored plain text.
// Entity decoding falls out of the conversion.
func htmlToText(src string) (string, error) {
	out, err := htmltomarkdown.ConvertString(src)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return chunking.NormalizeWhitespace(out), nil
}

// extractBytes sniffs the payload and extracts plain text from PDF, HTML or
// raw text bodies.
func extractBytes(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/pdf"):
		return pdfToText(data)
	case mtype.Is("text/html"):
		return htmlToText(string(data))
	case strings.HasPrefix(mtype.String(), "text/"):
		return chunking.NormalizeWhitespace(html.UnescapeString(string(data))), nil
	}
	return "", fmt.Errorf("unsupported content type %s", mtype.String())
}

func pdfToText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return chunking.NormalizeWhitespace(buf.String()), nil
}
