package apis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govreporter/internal/models"
	"govreporter/pkg/httpclient"
)

// testClient has no pacing and no retries worth waiting for.
func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{MaxRetries: 1, RetryBaseDelay: 1}, nil)
}

func TestCourtListenerListIDsFollowsCursor(t *testing.T) {
	var firstQuery string
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/opinions/", r.URL.Path)
		switch r.URL.Query().Get("cursor") {
		case "":
			firstQuery = r.URL.RawQuery
			next := srv.URL + "/opinions/?cursor=abc"
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":   3,
				"next":    next,
				"results": []map[string]int64{{"id": 101}, {"id": 102}},
			})
		case "abc":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":   3,
				"next":    nil,
				"results": []map[string]int64{{"id": 103}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &CourtListener{http: testClient(), base: srv.URL}
	var ids []string
	err := c.ListIDs(context.Background(), "2024-01-01", "2024-12-31", func(id string) error {
		ids = append(ids, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "102", "103"}, ids)

	assert.Contains(t, firstQuery, "cluster__docket__court=scotus")
	assert.Contains(t, firstQuery, "cluster__date_filed__gte=2024-01-01")
	assert.Contains(t, firstQuery, "cluster__date_filed__lte=2024-12-31")
	assert.Contains(t, firstQuery, "order_by=cluster__date_filed")
}

func TestCourtListenerListIDsStopsOnCallbackError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   2,
			"next":    nil,
			"results": []map[string]int64{{"id": 1}, {"id": 2}},
		})
	}))
	defer srv.Close()

	c := &CourtListener{http: testClient(), base: srv.URL}
	stop := errors.New("stop")
	var seen int
	err := c.ListIDs(context.Background(), "", "", func(string) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func courtListenerServer(t *testing.T, opinion, cluster map[string]interface{}) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/opinions/42/":
			if opinion["cluster"] == "" {
				opinion["cluster"] = srv.URL + "/clusters/7/"
			}
			json.NewEncoder(w).Encode(opinion)
		case "/clusters/7/":
			json.NewEncoder(w).Encode(cluster)
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestCourtListenerFetchPlainText(t *testing.T) {
	opinion := map[string]interface{}{
		"id":           int64(42),
		"cluster":      "",
		"absolute_url": "/opinion/42/test-v-case/",
		"plain_text":   "Justice Roberts delivered the opinion of the Court.\n\nWe hold X.",
		"per_curiam":   false,
	}
	cluster := map[string]interface{}{
		"id":         int64(7),
		"case_name":  "Test v. Case",
		"date_filed": "2024-03-15",
		"judges":     "Roberts",
		"citations": []map[string]interface{}{
			{"volume": 601, "reporter": "U.S.", "page": "416", "type": 1},
		},
		"scdb_votes_majority": 6,
		"scdb_votes_minority": 3,
	}
	srv := courtListenerServer(t, opinion, cluster)
	defer srv.Close()

	c := &CourtListener{http: testClient(), base: srv.URL}
	doc, err := c.Fetch(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", doc.ID)
	assert.Equal(t, models.DocumentTypeCourtOpinion, doc.Type)
	assert.Equal(t, "Test v. Case", doc.Title)
	assert.Equal(t, "2024-03-15", doc.PublicationDate)
	assert.Equal(t, "https://www.courtlistener.com/opinion/42/test-v-case/", doc.URL)
	assert.Contains(t, doc.Text, "We hold X.")
	require.NotNil(t, doc.Opinion)
	assert.Equal(t, "601 U.S. 416 (2024)", doc.Opinion.Citation)
	assert.Equal(t, 6, doc.Opinion.VoteMajority)
	assert.Equal(t, 3, doc.Opinion.VoteMinority)
	assert.NoError(t, doc.Validate())
}

func TestCourtListenerFetchFallsBackToHTML(t *testing.T) {
	opinion := map[string]interface{}{
		"id":                  int64(42),
		"cluster":             "",
		"plain_text":          "   ",
		"html_with_citations": "<p>The judgment is <em>affirmed</em>.</p>",
	}
	cluster := map[string]interface{}{"case_name": "A v. B", "date_filed": "2023-06-01"}
	srv := courtListenerServer(t, opinion, cluster)
	defer srv.Close()

	c := &CourtListener{http: testClient(), base: srv.URL}
	doc, err := c.Fetch(context.Background(), "42")
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "affirmed")
	assert.NotContains(t, doc.Text, "<p>")
}

func TestCourtListenerFetchEmptyDocument(t *testing.T) {
	opinion := map[string]interface{}{"id": int64(42), "cluster": ""}
	cluster := map[string]interface{}{"case_name": "A v. B"}
	srv := courtListenerServer(t, opinion, cluster)
	defer srv.Close()

	c := &CourtListener{http: testClient(), base: srv.URL}
	_, err := c.Fetch(context.Background(), "42")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFederalRegisterListIDsPagination(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/documents", r.URL.Path)
		queries = append(queries, r.URL.RawQuery)
		page := r.URL.Query().Get("page")
		switch page {
		case "1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":       3,
				"total_pages": 2,
				"results":     []map[string]string{{"document_number": "2024-001"}, {"document_number": "2024-002"}},
			})
		case "2":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"count":       3,
				"total_pages": 2,
				"results":     []map[string]string{{"document_number": "2024-003"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := &FederalRegister{http: testClient(), base: srv.URL}
	var ids []string
	err := f.ListIDs(context.Background(), "2024-01-01", "2024-12-31", func(id string) error {
		ids = append(ids, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-001", "2024-002", "2024-003"}, ids)

	require.Len(t, queries, 2)
	q, err := url.ParseQuery(queries[0])
	require.NoError(t, err)
	assert.Equal(t, "PRESDOCU", q.Get("conditions[type][]"))
	assert.Equal(t, "executive_order", q.Get("conditions[presidential_document_type][]"))
	assert.Equal(t, "2024-01-01", q.Get("conditions[signing_date][gte]"))
	assert.Equal(t, "oldest", q.Get("order"))
}

func TestFederalRegisterFetch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/documents/2024-01234":
			fmt.Fprintf(w, `{
				"document_number": "2024-01234",
				"title": "Strengthening the Federal Workforce",
				"executive_order_number": 14123,
				"president": {"name": "Joseph R. Biden Jr."},
				"signing_date": "2024-02-01",
				"publication_date": "2024-02-05",
				"citation": "89 FR 9001",
				"html_url": "https://www.federalregister.gov/d/2024-01234",
				"raw_text_url": %q,
				"agencies": [{"name": "Office of Personnel Management"}, {"raw_name": "Executive Office of the President"}]
			}`, srv.URL+"/raw/2024-01234")
		case "/raw/2024-01234":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body><p>By the authority vested in me as President&hellip;</p><p>Sec. 2. Policy.</p></body></html>")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := &FederalRegister{http: testClient(), base: srv.URL}
	doc, err := f.Fetch(context.Background(), "2024-01234")
	require.NoError(t, err)

	assert.Equal(t, "2024-01234", doc.ID)
	assert.Equal(t, models.DocumentTypeExecutiveOrder, doc.Type)
	// Signing date, not Federal Register publication date.
	assert.Equal(t, "2024-02-01", doc.PublicationDate)
	assert.Contains(t, doc.Text, "By the authority vested in me")
	assert.NotContains(t, doc.Text, "<p>")
	require.NotNil(t, doc.Order)
	assert.Equal(t, "14123", doc.Order.ExecutiveOrderNumber)
	assert.Equal(t, "Joseph R. Biden Jr.", doc.Order.President)
	assert.Equal(t, "2024-02-05", doc.Order.PublicationDate)
	assert.Equal(t, []string{"Office of Personnel Management", "Executive Office of the President"}, doc.Order.Agencies)
	assert.NoError(t, doc.Validate())
}

func TestFederalRegisterFetchNoRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"document_number": "2024-99999", "title": "t", "signing_date": "2024-01-01"}`)
	}))
	defer srv.Close()

	f := &FederalRegister{http: testClient(), base: srv.URL}
	_, err := f.Fetch(context.Background(), "2024-99999")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractBytes(t *testing.T) {
	text, err := extractBytes([]byte("plain words &amp; more"))
	require.NoError(t, err)
	assert.Equal(t, "plain words & more", text)

	text, err = extractBytes([]byte("<html><body><h1>Title</h1><p>Body text.</p></body></html>"))
	require.NoError(t, err)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Body text.")

	_, err = extractBytes([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	assert.Error(t, err, "png is not extractable")
}
