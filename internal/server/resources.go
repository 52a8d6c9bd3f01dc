package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"govreporter/internal/models"
)

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"opinion://{id}",
		"Supreme Court opinion",
		mcp.WithTemplateDescription("Full text and metadata of one Supreme Court opinion, fetched live from CourtListener by opinion id."),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.resourceHandler(models.DocumentTypeCourtOpinion, "opinion://"))

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"order://{document_number}",
		"Executive Order",
		mcp.WithTemplateDescription("Full text and metadata of one Executive Order, fetched live from the Federal Register by document number."),
		mcp.WithTemplateMIMEType("text/markdown"),
	), s.resourceHandler(models.DocumentTypeExecutiveOrder, "order://"))
}

func (s *Server) resourceHandler(docType models.DocumentType, prefix string) func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		uri := req.Params.URI
		id := strings.TrimPrefix(uri, prefix)
		if id == "" || id == uri {
			return nil, fmt.Errorf("malformed resource uri %q", uri)
		}

		fetcher := s.fetchers[docType]
		if fetcher == nil {
			return nil, fmt.Errorf("live document access is not configured for %s", docType)
		}
		doc, err := fetcher.Fetch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", uri, err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     renderDocument(doc),
			},
		}, nil
	}
}

// renderDocument lays out a fetched document as markdown for resource reads
// and full-document tool responses.
func renderDocument(doc *models.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	fmt.Fprintf(&b, "**Document ID:** %s\n", doc.ID)
	fmt.Fprintf(&b, "**Type:** %s\n", typeLabel(doc.Type))
	fmt.Fprintf(&b, "**Source:** %s\n", doc.Source)
	if doc.PublicationDate != "" {
		fmt.Fprintf(&b, "**Date:** %s\n", doc.PublicationDate)
	}
	if doc.URL != "" {
		fmt.Fprintf(&b, "**URL:** %s\n", doc.URL)
	}
	b.WriteString("\n---\n\n## Document Content\n\n")
	b.WriteString(doc.Text)
	b.WriteString("\n\n---\n\n## Metadata\n\n")
	for _, line := range metadataLines(doc) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func typeLabel(t models.DocumentType) string {
	switch t {
	case models.DocumentTypeCourtOpinion:
		return "Supreme Court Opinion"
	case models.DocumentTypeExecutiveOrder:
		return "Executive Order"
	}
	return string(t)
}

func metadataLines(doc *models.Document) []string {
	var lines []string
	add := func(name, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", name, value))
		}
	}
	switch {
	case doc.Opinion != nil:
		o := doc.Opinion
		add("Case Name", o.CaseName)
		add("Citation", o.Citation)
		add("Judges", o.Judges)
		if o.PerCuriam {
			add("Per Curiam", "yes")
		}
		if o.VoteMajority > 0 {
			add("Vote", fmt.Sprintf("%d-%d", o.VoteMajority, o.VoteMinority))
		}
	case doc.Order != nil:
		o := doc.Order
		add("Document Number", o.DocumentNumber)
		add("Executive Order Number", o.ExecutiveOrderNumber)
		add("President", o.President)
		add("Signing Date", o.SigningDate)
		add("Federal Register Publication Date", o.PublicationDate)
		add("Citation", o.Citation)
		add("Agencies", strings.Join(o.Agencies, ", "))
	}
	return lines
}
