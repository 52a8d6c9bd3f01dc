// Package chunking cuts documents into token-budgeted, structure-aware
// chunks. Supreme Court opinions split along opinion and part boundaries,
// executive orders along section boundaries; within a region a sliding
// window accumulates paragraphs against the corpus token budget.
package chunking

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Config is the token budget for one corpus.
type Config struct {
	MinTokens    int
	TargetTokens int
	MaxTokens    int
	OverlapRatio float64
}

// Validate checks the budget invariants.
func (c Config) Validate() error {
	if c.MinTokens <= 0 || c.MinTokens > c.TargetTokens || c.TargetTokens > c.MaxTokens {
		return fmt.Errorf("token budget must satisfy 0 < min <= target <= max, got %d/%d/%d",
			c.MinTokens, c.TargetTokens, c.MaxTokens)
	}
	if c.OverlapRatio < 0 || c.OverlapRatio >= 1 {
		return fmt.Errorf("overlap ratio must be in [0, 1), got %v", c.OverlapRatio)
	}
	return nil
}

// Span is one emitted window of text.
type Span struct {
	Text       string
	TokenCount int
}

type sepKind int

const (
	sepParagraph sepKind = iota // unit starts a paragraph
	sepSentence                 // unit continues a paragraph
)

func (s sepKind) String() string {
	if s == sepParagraph {
		return "\n\n"
	}
	return " "
}

// unit is one paragraph, sentence or word run, always within the max budget
// for normal text.
type unit struct {
	text   string
	tokens int
	sep    sepKind
}

// Window slides a token budget over one region of text. Overlap never
// crosses the region boundary; each region gets its own Split call.
type Window struct {
	cfg     Config
	counter TokenCounter
	sepCost map[sepKind]int
}

// NewWindow builds a window for the given budget.
func NewWindow(cfg Config, counter TokenCounter) (*Window, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if counter == nil {
		counter = NewTokenCounter(nil)
	}
	return &Window{
		cfg:     cfg,
		counter: counter,
		sepCost: map[sepKind]int{
			sepParagraph: counter.Count("\n\n"),
			sepSentence:  counter.Count(" "),
		},
	}, nil
}

// Split cuts one region of text into spans. Empty input yields no spans and
// no error.
func (w *Window) Split(text string) []Span {
	units := w.units(text)
	if len(units) == 0 {
		return nil
	}

	overlapBudget := int(math.Round(w.cfg.OverlapRatio * float64(w.cfg.TargetTokens)))

	var spans []Span
	var seed, body []unit

	total := func() int {
		return w.joinedTokens(seed) + w.tailTokens(len(seed) > 0, body)
	}
	emit := func() {
		all := make([]unit, 0, len(seed)+len(body))
		all = append(all, seed...)
		all = append(all, body...)
		spans = append(spans, w.join(all))
		seed = overlapSeed(all, overlapBudget)
		body = nil
	}

	i := 0
	for i < len(units) {
		u := units[i]
		cur := total()
		if cur > 0 && cur+w.cost(u) > w.cfg.MaxTokens {
			if len(body) == 0 {
				// Nothing but the overlap seed so far and the next unit
				// does not fit beside it. Drop the seed instead of
				// emitting a duplicate of the previous tail.
				seed = nil
				continue
			}
			if cur < w.cfg.MinTokens {
				if head, tail, ok := w.splitToFit(u, w.cfg.MaxTokens-cur); ok {
					body = append(body, head)
					units[i] = tail
				}
			}
			emit()
			continue
		}
		body = append(body, u)
		i++
		if total() >= w.cfg.TargetTokens {
			emit()
		}
	}

	if len(body) > 0 {
		frag := total()
		bodySpan := w.join(body)
		if frag < w.cfg.MinTokens && len(spans) > 0 {
			last := &spans[len(spans)-1]
			merged := last.TokenCount + w.sepCost[body[0].sep] + bodySpan.TokenCount
			if merged <= w.cfg.MaxTokens {
				last.Text += body[0].sep.String() + bodySpan.Text
				last.TokenCount = merged
				return spans
			}
		}
		emit()
	}
	return spans
}

// cost is what appending u to a non-empty chunk adds.
func (w *Window) cost(u unit) int {
	return u.tokens + w.sepCost[u.sep]
}

func (w *Window) joinedTokens(units []unit) int {
	n := 0
	for i, u := range units {
		if i > 0 {
			n += w.sepCost[u.sep]
		}
		n += u.tokens
	}
	return n
}

// tailTokens counts units appended after an existing prefix.
func (w *Window) tailTokens(hasPrefix bool, units []unit) int {
	n := 0
	for i, u := range units {
		if i > 0 || hasPrefix {
			n += w.sepCost[u.sep]
		}
		n += u.tokens
	}
	return n
}

func (w *Window) join(units []unit) Span {
	var b strings.Builder
	for i, u := range units {
		if i > 0 {
			b.WriteString(u.sep.String())
		}
		b.WriteString(u.text)
	}
	return Span{Text: b.String(), TokenCount: w.joinedTokens(units)}
}

// units normalizes the region and cuts it into paragraph units, splitting
// oversized paragraphs into sentences and oversized sentences into word runs.
func (w *Window) units(text string) []unit {
	text = NormalizeWhitespace(text)
	if text == "" {
		return nil
	}
	var units []unit
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := w.counter.Count(para)
		if n <= w.cfg.MaxTokens {
			units = append(units, unit{text: para, tokens: n, sep: sepParagraph})
			continue
		}
		sep := sepParagraph
		for _, sentence := range splitSentences(para) {
			sn := w.counter.Count(sentence)
			if sn <= w.cfg.MaxTokens {
				units = append(units, unit{text: sentence, tokens: sn, sep: sep})
				sep = sepSentence
				continue
			}
			for _, run := range w.wordRuns(sentence, w.cfg.MaxTokens) {
				units = append(units, unit{text: run.text, tokens: run.tokens, sep: sep})
				sep = sepSentence
			}
		}
	}
	return units
}

// splitToFit carves a head of at most space tokens off u, preferring
// sentence boundaries and falling back to word runs. ok is false when not
// even one word fits.
func (w *Window) splitToFit(u unit, space int) (head, tail unit, ok bool) {
	if space <= 0 {
		return unit{}, u, false
	}
	carve := func(parts []string, joiner string) (unit, unit, bool) {
		taken := 0
		used := 0
		for _, p := range parts {
			cost := w.counter.Count(p)
			if taken > 0 {
				cost += w.counter.Count(joiner)
			}
			if used+cost > space {
				break
			}
			used += cost
			taken++
		}
		if taken == 0 || taken == len(parts) {
			return unit{}, u, false
		}
		headText := strings.Join(parts[:taken], joiner)
		tailText := strings.Join(parts[taken:], joiner)
		return unit{text: headText, tokens: used, sep: u.sep},
			unit{text: tailText, tokens: w.counter.Count(tailText), sep: sepSentence},
			true
	}

	if sentences := splitSentences(u.text); len(sentences) > 1 {
		if h, t, carved := carve(sentences, " "); carved {
			return h, t, true
		}
	}
	return carve(strings.Fields(u.text), " ")
}

type run struct {
	text   string
	tokens int
}

// wordRuns hard-splits an oversized sentence into word runs within max.
func (w *Window) wordRuns(sentence string, max int) []run {
	words := strings.Fields(sentence)
	var runs []run
	var cur []string
	tokens := 0
	flush := func() {
		if len(cur) > 0 {
			text := strings.Join(cur, " ")
			runs = append(runs, run{text: text, tokens: tokens})
			cur = nil
			tokens = 0
		}
	}
	for _, word := range words {
		cost := w.counter.Count(word)
		if len(cur) > 0 {
			cost += w.sepCost[sepSentence]
		}
		if len(cur) > 0 && tokens+cost > max {
			flush()
			cost = w.counter.Count(word)
		}
		cur = append(cur, word)
		tokens += cost
	}
	flush()
	return runs
}

// overlapSeed picks whole trailing units within the overlap budget, never
// the entire chunk.
func overlapSeed(all []unit, budget int) []unit {
	if budget <= 0 || len(all) <= 1 {
		return nil
	}
	sum := 0
	start := len(all)
	for i := len(all) - 1; i > 0; i-- {
		if sum+all[i].tokens > budget {
			break
		}
		sum += all[i].tokens
		start = i
	}
	if start == len(all) {
		return nil
	}
	seed := make([]unit, len(all)-start)
	copy(seed, all[start:])
	return seed
}

var (
	blankRun         = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
	sentenceBoundary = regexp.MustCompile(`[.!?]["')\]]*\s+`)
)

// NormalizeWhitespace trims the text and collapses runs of blank lines into
// single paragraph breaks.
func NormalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		piece := strings.TrimSpace(text[start:loc[1]])
		if piece != "" {
			out = append(out, piece)
		}
		start = loc[1]
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
