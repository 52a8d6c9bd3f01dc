package apis

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"govreporter/internal/chunking"
	"govreporter/internal/models"
	"govreporter/pkg/citation"
	"govreporter/pkg/httpclient"
	"govreporter/pkg/logger"
)

const (
	courtListenerBase = "https://www.courtlistener.com/api/rest/v4"
	// Authenticated clients get 5000 requests per hour; 0.1s spacing stays
	// well under that.
	courtListenerInterval = 100 * time.Millisecond
)

// CourtListener fetches Supreme Court opinions from the CourtListener REST
// API. Document ids are CourtListener opinion ids as decimal strings.
type CourtListener struct {
	http *httpclient.Client
	base string
	log  *logger.Logger
}

// NewCourtListener creates a fetcher authenticated with the given API token.
func NewCourtListener(token string, log *logger.Logger) *CourtListener {
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Token " + token
	}
	return &CourtListener{
		http: httpclient.New(httpclient.Config{
			RequestInterval: courtListenerInterval,
			UserAgent:       UserAgent,
			Headers:         headers,
		}, log),
		base: courtListenerBase,
		log:  log,
	}
}

// DocumentType implements Fetcher.
func (c *CourtListener) DocumentType() models.DocumentType {
	return models.DocumentTypeCourtOpinion
}

type opinionPage struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
}

// ListIDs walks /opinions/ filtered to SCOTUS and the date window, following
// the next cursor until exhausted. The cursor URL carries the query, so
// params go only on the first request.
func (c *CourtListener) ListIDs(ctx context.Context, start, end string, fn func(id string) error) error {
	if start == "" {
		start = "1900-01-01"
	}
	if end == "" {
		end = time.Now().UTC().Format("2006-01-02")
	}

	params := url.Values{
		"cluster__docket__court":   {"scotus"},
		"cluster__date_filed__gte": {start},
		"cluster__date_filed__lte": {end},
		"order_by":                 {"cluster__date_filed"},
		"fields":                   {"id"},
	}

	next := c.base + "/opinions/"
	first := true
	for next != "" {
		var page opinionPage
		var err error
		if first {
			err = c.http.GetJSON(ctx, next, params, &page)
			first = false
		} else {
			err = c.http.GetJSON(ctx, next, nil, &page)
		}
		if err != nil {
			return fmt.Errorf("list opinions: %w", err)
		}
		for _, r := range page.Results {
			if err := fn(fmt.Sprintf("%d", r.ID)); err != nil {
				return err
			}
		}
		if page.Next == nil {
			break
		}
		next = *page.Next
	}
	return nil
}

type opinionDetail struct {
	ID                int64  `json:"id"`
	AbsoluteURL       string `json:"absolute_url"`
	Cluster           string `json:"cluster"`
	PlainText         string `json:"plain_text"`
	HTMLWithCitations string `json:"html_with_citations"`
	DownloadURL       string `json:"download_url"`
	PerCuriam         bool   `json:"per_curiam"`
}

type clusterDetail struct {
	ID           int64               `json:"id"`
	CaseName     string              `json:"case_name"`
	DateFiled    string              `json:"date_filed"`
	Judges       string              `json:"judges"`
	Citations    []citation.Citation `json:"citations"`
	VoteMajority int                 `json:"scdb_votes_majority"`
	VoteMinority int                 `json:"scdb_votes_minority"`
}

// Fetch downloads one opinion plus its cluster record and picks the best
// available text representation.
func (c *CourtListener) Fetch(ctx context.Context, id string) (*models.Document, error) {
	var op opinionDetail
	if err := c.http.GetJSON(ctx, fmt.Sprintf("%s/opinions/%s/", c.base, id), nil, &op); err != nil {
		return nil, fmt.Errorf("fetch opinion %s: %w", id, err)
	}

	var cluster clusterDetail
	if op.Cluster != "" {
		if err := c.http.GetJSON(ctx, op.Cluster, nil, &cluster); err != nil {
			return nil, fmt.Errorf("fetch cluster for opinion %s: %w", id, err)
		}
	}

	text, err := c.selectText(ctx, &op)
	if err != nil {
		return nil, fmt.Errorf("opinion %s: %w", id, err)
	}

	doc := &models.Document{
		ID:              id,
		Type:            models.DocumentTypeCourtOpinion,
		Title:           cluster.CaseName,
		PublicationDate: cluster.DateFiled,
		Source:          "CourtListener",
		URL:             absoluteURL(op.AbsoluteURL),
		Text:            text,
		Opinion: &models.OpinionInfo{
			ClusterID:    cluster.ID,
			CaseName:     cluster.CaseName,
			Citation:     citation.Bluebook(cluster.Citations, cluster.DateFiled),
			Judges:       cluster.Judges,
			PerCuriam:    op.PerCuriam,
			VoteMajority: cluster.VoteMajority,
			VoteMinority: cluster.VoteMinority,
		},
	}
	return doc, nil
}

// selectText prefers the plain text field, then the citation-annotated HTML,
// then the scanned source behind download_url.
func (c *CourtListener) selectText(ctx context.Context, op *opinionDetail) (string, error) {
	if strings.TrimSpace(op.PlainText) != "" {
		return chunking.NormalizeWhitespace(op.PlainText), nil
	}
	if op.HTMLWithCitations != "" {
		text, err := htmlToText(op.HTMLWithCitations)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	if op.DownloadURL != "" {
		data, _, err := c.http.GetBytes(ctx, op.DownloadURL)
		if err != nil {
			return "", fmt.Errorf("download source: %w", err)
		}
		text, err := extractBytes(data)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyDocument
}

// absoluteURL resolves CourtListener's site-relative absolute_url field.
func absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return "https://www.courtlistener.com" + path
}
