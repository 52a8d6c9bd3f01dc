package apis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"govreporter/internal/models"
	"govreporter/pkg/httpclient"
	"govreporter/pkg/logger"
)

const (
	federalRegisterBase = "https://www.federalregister.gov/api/v1"
	// Unauthenticated tier allows roughly one request per second; 1.1s
	// spacing leaves headroom.
	federalRegisterInterval = 1100 * time.Millisecond
	federalRegisterPageSize = 100
)

// FederalRegister fetches Executive Orders from the Federal Register API.
// Document ids are Federal Register document numbers, e.g. "2024-01234".
type FederalRegister struct {
	http *httpclient.Client
	base string
	log  *logger.Logger
}

// NewFederalRegister creates an unauthenticated fetcher.
func NewFederalRegister(log *logger.Logger) *FederalRegister {
	return &FederalRegister{
		http: httpclient.New(httpclient.Config{
			RequestInterval: federalRegisterInterval,
			UserAgent:       UserAgent,
		}, log),
		base: federalRegisterBase,
		log:  log,
	}
}

// DocumentType implements Fetcher.
func (f *FederalRegister) DocumentType() models.DocumentType {
	return models.DocumentTypeExecutiveOrder
}

type orderPage struct {
	Count      int `json:"count"`
	TotalPages int `json:"total_pages"`
	Results    []struct {
		DocumentNumber string `json:"document_number"`
	} `json:"results"`
}

// ListIDs walks /documents filtered to executive orders signed in the window,
// oldest first, page by page.
func (f *FederalRegister) ListIDs(ctx context.Context, start, end string, fn func(id string) error) error {
	if start == "" {
		start = "1994-01-01" // Federal Register API coverage starts in 1994
	}
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}

	for page := 1; ; page++ {
		params := url.Values{
			"conditions[type][]":                       {"PRESDOCU"},
			"conditions[presidential_document_type][]": {"executive_order"},
			"conditions[signing_date][gte]":            {start},
			"conditions[signing_date][lte]":            {end},
			"fields[]":                                 {"document_number"},
			"per_page":                                 {strconv.Itoa(federalRegisterPageSize)},
			"order":                                    {"oldest"},
			"page":                                     {strconv.Itoa(page)},
		}
		var resp orderPage
		if err := f.http.GetJSON(ctx, f.base+"/documents", params, &resp); err != nil {
			return fmt.Errorf("list executive orders page %d: %w", page, err)
		}
		for _, r := range resp.Results {
			if err := fn(r.DocumentNumber); err != nil {
				return err
			}
		}
		if page >= resp.TotalPages {
			return nil
		}
	}
}

type orderDetail struct {
	DocumentNumber       string      `json:"document_number"`
	Title                string      `json:"title"`
	ExecutiveOrderNumber json.Number `json:"executive_order_number"`
	President            struct {
		Name string `json:"name"`
	} `json:"president"`
	SigningDate     string `json:"signing_date"`
	PublicationDate string `json:"publication_date"`
	Citation        string `json:"citation"`
	HTMLURL         string `json:"html_url"`
	RawTextURL      string `json:"raw_text_url"`
	Agencies        []struct {
		Name    string `json:"name"`
		RawName string `json:"raw_name"`
	} `json:"agencies"`
}

var orderFields = []string{
	"document_number", "title", "executive_order_number", "president",
	"signing_date", "publication_date", "citation", "html_url",
	"raw_text_url", "agencies",
}

// Fetch downloads one order's metadata record and its raw text body.
// Document.PublicationDate carries the signing date, which is what users
// filter on; the Federal Register publication date stays in the order info.
func (f *FederalRegister) Fetch(ctx context.Context, documentNumber string) (*models.Document, error) {
	params := url.Values{"fields[]": orderFields}
	var detail orderDetail
	if err := f.http.GetJSON(ctx, f.base+"/documents/"+documentNumber, params, &detail); err != nil {
		return nil, fmt.Errorf("fetch executive order %s: %w", documentNumber, err)
	}

	text, err := f.fetchBody(ctx, &detail)
	if err != nil {
		return nil, fmt.Errorf("executive order %s: %w", documentNumber, err)
	}

	agencies := make([]string, 0, len(detail.Agencies))
	for _, a := range detail.Agencies {
		name := a.Name
		if name == "" {
			name = a.RawName
		}
		if name != "" {
			agencies = append(agencies, name)
		}
	}

	doc := &models.Document{
		ID:              documentNumber,
		Type:            models.DocumentTypeExecutiveOrder,
		Title:           detail.Title,
		PublicationDate: detail.SigningDate,
		Source:          "Federal Register",
		URL:             detail.HTMLURL,
		Text:            text,
		Order: &models.OrderInfo{
			DocumentNumber:       documentNumber,
			ExecutiveOrderNumber: detail.ExecutiveOrderNumber.String(),
			President:            detail.President.Name,
			SigningDate:          detail.SigningDate,
			PublicationDate:      detail.PublicationDate,
			Citation:             detail.Citation,
			Agencies:             agencies,
			RawTextURL:           detail.RawTextURL,
		},
	}
	return doc, nil
}

func (f *FederalRegister) fetchBody(ctx context.Context, detail *orderDetail) (string, error) {
	if detail.RawTextURL == "" {
		return "", ErrEmptyDocument
	}
	data, _, err := f.http.GetBytes(ctx, detail.RawTextURL)
	if err != nil {
		return "", fmt.Errorf("download body: %w", err)
	}
	text, err := extractBytes(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
