package chunking

import (
	"regexp"
	"strings"

	"govreporter/internal/models"
)

var (
	// Section headings: "Sec. 1. Purpose." or "Section 1. Policy." at the
	// start of a line, title running to the end of the heading sentence.
	sectionHeading = regexp.MustCompile(`(?m)^[ \t]*(Sec\.|Section)\s+(\d+)\.\s*([^\n]*)`)

	// Lettered subsections "(a)" at the start of a line or after a sentence.
	subsectionLabel = regexp.MustCompile(`(?m)^[ \t]*\(([a-z])\)\s+`)

	// Signature and filing block markers that open the tail region.
	tailMarker = regexp.MustCompile(`(?m)^[ \t]*(THE WHITE HOUSE[,.]?|\[FR Doc\.)`)
)

// OrderChunker cuts Executive Orders into header, section and tail regions,
// then windows each region with the order token budget.
type OrderChunker struct {
	window *Window
}

// NewOrderChunker builds a chunker with the executive-order token budget.
func NewOrderChunker(cfg Config, counter TokenCounter) (*OrderChunker, error) {
	w, err := NewWindow(cfg, counter)
	if err != nil {
		return nil, err
	}
	return &OrderChunker{window: w}, nil
}

type orderRegion struct {
	chunkType    models.OrderChunkType
	sectionTitle string
	sectionNum   string
	text         string
}

// Chunk splits one executive order. Orders without section headings become a
// single header region; malformed input never fails.
func (c *OrderChunker) Chunk(text string) []models.Chunk {
	text = NormalizeWhitespace(text)
	if text == "" {
		return nil
	}

	var chunks []models.Chunk
	for _, region := range splitOrderRegions(text) {
		c.chunkRegion(region, &chunks)
	}
	return chunks
}

// chunkRegion windows one region. Section regions are further divided at
// lettered subsections so a chunk can carry the label of the subsection it
// starts in; overlap still spans the whole section, not each subsection, so
// the window runs over the region text and labels are assigned by offset.
func (c *OrderChunker) chunkRegion(region orderRegion, chunks *[]models.Chunk) {
	labelAt := subsectionOffsets(region)
	offset := 0
	for _, s := range c.window.Split(region.text) {
		// Locate the span in the region to pick its starting subsection.
		// Overlapping chunks re-scan from a little before the previous hit.
		pos := strings.Index(region.text[offset:], firstLine(s.Text))
		if pos >= 0 {
			offset += pos
		}
		*chunks = append(*chunks, models.Chunk{
			Text:       s.Text,
			Index:      len(*chunks),
			TokenCount: s.TokenCount,
			Order: &models.OrderSectionInfo{
				ChunkType:       region.chunkType,
				SectionTitle:    region.sectionTitle,
				SubsectionLabel: labelAt(offset),
			},
		})
	}
}

// splitOrderRegions partitions an order into header, per-section and tail
// regions. The header runs from the start through the preamble; the tail is
// the signature and filing block after the last section.
func splitOrderRegions(text string) []orderRegion {
	locs := sectionHeading.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []orderRegion{{chunkType: models.OrderHeader, text: text}}
	}

	var regions []orderRegion
	if head := strings.TrimSpace(text[:locs[0][0]]); head != "" {
		regions = append(regions, orderRegion{chunkType: models.OrderHeader, text: head})
	}

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := text[loc[0]:end]

		tail := ""
		if i == len(locs)-1 {
			if m := tailMarker.FindStringIndex(body); m != nil {
				tail = strings.TrimSpace(body[m[0]:])
				body = body[:m[0]]
			}
		}

		body = strings.TrimSpace(body)
		if body != "" {
			title := strings.TrimSpace(text[loc[0]:headingEnd(text, loc)])
			regions = append(regions, orderRegion{
				chunkType:    models.OrderSection,
				sectionTitle: title,
				sectionNum:   text[loc[4]:loc[5]],
				text:         body,
			})
		}
		if tail != "" {
			regions = append(regions, orderRegion{chunkType: models.OrderTail, text: tail})
		}
	}
	return regions
}

// headingEnd bounds the heading sentence: through the first period after the
// section number's title word, or the end of the line when the title has no
// trailing period.
func headingEnd(text string, loc []int) int {
	titleStart := loc[6]
	titleEnd := loc[7]
	title := text[titleStart:titleEnd]
	if dot := strings.Index(title, "."); dot >= 0 {
		return titleStart + dot + 1
	}
	return titleEnd
}

// subsectionOffsets maps a byte offset in the region to the label of the
// subsection containing it, e.g. "Sec. 2(a)". Offsets before the first
// subsection map to the empty string.
func subsectionOffsets(region orderRegion) func(int) string {
	if region.chunkType != models.OrderSection {
		return func(int) string { return "" }
	}
	locs := subsectionLabel.FindAllStringSubmatchIndex(region.text, -1)
	if len(locs) == 0 {
		return func(int) string { return "" }
	}
	return func(offset int) string {
		label := ""
		for _, loc := range locs {
			if loc[0] > offset {
				break
			}
			label = "Sec. " + region.sectionNum + "(" + region.text[loc[2]:loc[3]] + ")"
		}
		return label
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	// A short stable prefix is enough to relocate the span.
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
