package chunking

import (
	"regexp"
	"sort"
	"strings"

	"govreporter/internal/models"
)

// Opinion header patterns. RE2 has no lookahead, so the mixed
// concurring-and-dissenting form is matched by its own pattern and wins
// position ties against the plain concurring and dissenting forms.
var (
	majorityRe = regexp.MustCompile(`(?is)\b(?:MR\.\s+)?(?:CHIEF\s+)?JUSTICE\s+([A-Z][A-Za-z'’-]+)\s+delivered\s+the\s+opinion`)
	mixedRe    = regexp.MustCompile(`(?is)\b(?:MR\.\s+)?(?:CHIEF\s+)?JUSTICE\s+([A-Z][A-Za-z'’-]+),\s*(?:with\s+whom\b.{0,300}?,\s*)?concurring\s+in\s+part\s+and\s+dissenting\s+in\s+part`)
	concurRe   = regexp.MustCompile(`(?is)\b(?:MR\.\s+)?(?:CHIEF\s+)?JUSTICE\s+([A-Z][A-Za-z'’-]+),\s*(?:with\s+whom\b.{0,300}?,\s*)?concurring`)
	dissentRe  = regexp.MustCompile(`(?is)\b(?:MR\.\s+)?(?:CHIEF\s+)?JUSTICE\s+([A-Z][A-Za-z'’-]+),\s*(?:with\s+whom\b.{0,300}?,\s*)?dissenting`)
	perCuriam  = regexp.MustCompile(`(?m)^[ \t]*PER CURIAM\.?[ \t]*$`)
	syllabusRe = regexp.MustCompile(`(?m)^[ \t]*Syllabus[ \t]*$`)

	partHeading = regexp.MustCompile(`(?m)^[ \t]*([IVXLC]+|[A-Z])\.?[ \t]*$`)
)

type opinionMarker struct {
	pos      int
	priority int
	opType   models.OpinionType
	justice  string
}

// OpinionChunker cuts Supreme Court opinions along opinion-type and
// part boundaries, then windows each region.
type OpinionChunker struct {
	window *Window
}

// NewOpinionChunker builds a chunker with the opinion token budget.
func NewOpinionChunker(cfg Config, counter TokenCounter) (*OpinionChunker, error) {
	w, err := NewWindow(cfg, counter)
	if err != nil {
		return nil, err
	}
	return &OpinionChunker{window: w}, nil
}

// Chunk splits one opinion document. Documents without recognizable
// structure become a single unlabeled region; malformed input never fails.
func (c *OpinionChunker) Chunk(text string) []models.Chunk {
	text = NormalizeWhitespace(text)
	if text == "" {
		return nil
	}

	var chunks []models.Chunk
	for _, span := range detectOpinionSpans(text) {
		for _, part := range splitParts(span.text) {
			for _, s := range c.window.Split(part.text) {
				chunks = append(chunks, models.Chunk{
					Text:       s.Text,
					Index:      len(chunks),
					TokenCount: s.TokenCount,
					Opinion: &models.OpinionSectionInfo{
						OpinionType:  span.opType,
						Justice:      span.justice,
						SectionLabel: part.label,
					},
				})
			}
		}
	}
	return chunks
}

type opinionSpan struct {
	text    string
	opType  models.OpinionType
	justice string
}

func detectOpinionSpans(text string) []opinionSpan {
	var markers []opinionMarker
	add := func(locs [][]int, priority int, opType models.OpinionType, withJustice bool) {
		for _, loc := range locs {
			m := opinionMarker{pos: loc[0], priority: priority, opType: opType}
			if withJustice && len(loc) >= 4 && loc[2] >= 0 {
				m.justice = normalizeJustice(text[loc[2]:loc[3]])
			}
			markers = append(markers, m)
		}
	}

	add(mixedRe.FindAllStringSubmatchIndex(text, -1), 0, models.OpinionConcurDissent, true)
	add(majorityRe.FindAllStringSubmatchIndex(text, -1), 1, models.OpinionMajority, true)
	add(concurRe.FindAllStringSubmatchIndex(text, -1), 2, models.OpinionConcurring, true)
	add(dissentRe.FindAllStringSubmatchIndex(text, -1), 3, models.OpinionDissenting, true)
	add(perCuriam.FindAllStringSubmatchIndex(text, -1), 1, models.OpinionMajority, false)
	add(syllabusRe.FindAllStringSubmatchIndex(text, -1), 4, models.OpinionSyllabus, false)

	if len(markers) == 0 {
		return []opinionSpan{{text: text}}
	}

	sort.Slice(markers, func(i, j int) bool {
		if markers[i].pos != markers[j].pos {
			return markers[i].pos < markers[j].pos
		}
		return markers[i].priority < markers[j].priority
	})

	// The plain concurring pattern also matches at every mixed-opinion
	// position; keep only the highest-priority marker per position.
	deduped := markers[:1]
	for _, m := range markers[1:] {
		if m.pos == deduped[len(deduped)-1].pos {
			continue
		}
		deduped = append(deduped, m)
	}

	var spans []opinionSpan
	if deduped[0].pos > 0 {
		if lead := strings.TrimSpace(text[:deduped[0].pos]); lead != "" {
			spans = append(spans, opinionSpan{text: lead})
		}
	}
	for i, m := range deduped {
		end := len(text)
		if i+1 < len(deduped) {
			end = deduped[i+1].pos
		}
		body := strings.TrimSpace(text[m.pos:end])
		if body == "" {
			continue
		}
		spans = append(spans, opinionSpan{text: body, opType: m.opType, justice: m.justice})
	}
	return spans
}

type partRegion struct {
	label string
	text  string
}

// splitParts cuts an opinion span at standalone part headings (Roman
// numerals, then letters), tracking labels like "II" and "II.A". The heading
// line stays at the start of its region.
func splitParts(text string) []partRegion {
	locs := partHeading.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []partRegion{{text: text}}
	}

	var regions []partRegion
	if lead := strings.TrimSpace(text[:locs[0][0]]); lead != "" {
		regions = append(regions, partRegion{text: lead})
	}

	roman := ""
	for i, loc := range locs {
		token := strings.TrimSuffix(text[loc[2]:loc[3]], ".")
		label := ""
		if isRoman(token) {
			roman = token
			label = token
		} else if roman != "" {
			label = roman + "." + token
		} else {
			label = token
		}

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[0]:end])
		if body == "" {
			continue
		}
		regions = append(regions, partRegion{label: label, text: body})
	}
	return regions
}

// isRoman treats single I, V and X as numerals, everything else
// single-letter as a subsection letter.
func isRoman(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		switch r {
		case 'I', 'V', 'X', 'L', 'C':
		default:
			return false
		}
	}
	if len(token) == 1 {
		return token == "I" || token == "V" || token == "X"
	}
	return true
}

// normalizeJustice maps the all-caps header form (THOMAS, O'CONNOR) to the
// conventional capitalization, leaving mixed-case names untouched.
func normalizeJustice(name string) string {
	if name != strings.ToUpper(name) {
		return name
	}
	lower := strings.ToLower(name)
	var b strings.Builder
	upperNext := true
	for _, r := range lower {
		if upperNext && r >= 'a' && r <= 'z' {
			b.WriteRune(r - 'a' + 'A')
			upperNext = false
			continue
		}
		if r == '\'' || r == '’' || r == '-' {
			upperNext = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
