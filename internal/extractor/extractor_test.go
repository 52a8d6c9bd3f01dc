package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govreporter/internal/models"
	"govreporter/pkg/logger"
)

// fakeLLM replays scripted responses in order.
type fakeLLM struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (f *fakeLLM) CompleteJSON(_ context.Context, system, _ string, _ int) (string, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, system)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", errors.New("no scripted reply")
}

func (f *fakeLLM) Name() string { return "fake" }

func testLogger() *logger.Logger {
	logrus.SetLevel(logrus.PanicLevel)
	return logger.New("extractor-test", "")
}

func fastExtractor(f *fakeLLM) *LLMExtractor {
	e := New(f, testLogger())
	e.baseDelay = 0
	return e
}

func opinionDoc(text string) *models.Document {
	return &models.Document{
		ID:      "op-1",
		Type:    models.DocumentTypeCourtOpinion,
		Text:    text,
		Opinion: &models.OpinionInfo{CaseName: "Test v. Case"},
	}
}

func orderDoc(text string) *models.Document {
	return &models.Document{
		ID:    "eo-1",
		Type:  models.DocumentTypeExecutiveOrder,
		Text:  text,
		Order: &models.OrderInfo{DocumentNumber: "2021-01234"},
	}
}

func TestExtractOpinionValidCitationsKept(t *testing.T) {
	text := "The Court considered the First Amendment and 42 U.S.C. § 1983 in this case."
	f := &fakeLLM{replies: []string{`{
		"summary": "The Court held X. It reasoned Y.",
		"legal_topics": ["free speech"],
		"constitution_cited": ["First Amendment", "Second Amendment"],
		"statutes_cited": ["42 U.S.C. § 1983", "8 U.S.C. § 1182"],
		"holding": "X.",
		"vote_breakdown": "9-0"
	}`}}

	e := fastExtractor(f)
	got, err := e.ExtractOpinion(context.Background(), opinionDoc(text))
	require.NoError(t, err)

	// Citations absent from the source text are dropped.
	assert.Equal(t, []string{"First Amendment"}, got.ConstitutionCited)
	assert.Equal(t, []string{"42 U.S.C. § 1983"}, got.StatutesCited)
	assert.Equal(t, "9-0", got.VoteBreakdown)
}

func TestExtractOpinionCitationSurvivesLineWrap(t *testing.T) {
	// The citation is split across a line break in the source.
	text := "This case turns on 42 U.S.C.\n§ 1983 and nothing else."
	f := &fakeLLM{replies: []string{`{"summary": "s", "statutes_cited": ["42 U.S.C. § 1983"]}`}}

	e := fastExtractor(f)
	got, err := e.ExtractOpinion(context.Background(), opinionDoc(text))
	require.NoError(t, err)
	assert.Equal(t, []string{"42 U.S.C. § 1983"}, got.StatutesCited)
}

func TestExtractOpinionMalformedThenStrictRetry(t *testing.T) {
	f := &fakeLLM{replies: []string{
		"this is not json",
		`{"summary": "The Court held Z.", "holding": "Z."}`,
	}}

	e := fastExtractor(f)
	got, err := e.ExtractOpinion(context.Background(), opinionDoc("text"))
	require.NoError(t, err)
	assert.Equal(t, "The Court held Z.", got.Summary)
	require.Equal(t, 2, f.calls)
	assert.Contains(t, f.prompts[1], "ONLY a JSON object")
}

func TestExtractOpinionFallbackAfterTwoBadReplies(t *testing.T) {
	f := &fakeLLM{replies: []string{"garbage", "more garbage"}}

	e := fastExtractor(f)
	got, err := e.ExtractOpinion(context.Background(), opinionDoc("text"))
	require.NoError(t, err, "extraction failure must not fail the document")
	assert.Equal(t, models.FallbackOpinionEnrichment().Summary, got.Summary)
}

func TestExtractOrderTopicsPadded(t *testing.T) {
	f := &fakeLLM{replies: []string{`{
		"summary": "Establishes a council.",
		"policy_topics": ["energy"],
		"agencies_impacted": ["Department of Energy"]
	}`}}

	e := fastExtractor(f)
	got, err := e.ExtractOrder(context.Background(), orderDoc("By the authority vested in me."))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(got.PolicyTopics), 4)
	assert.Contains(t, got.PolicyTopics, "energy")
	assert.Contains(t, got.PolicyTopics, "federal policy")
}

func TestExtractOrderAuthoritiesValidated(t *testing.T) {
	text := "By the authority vested in me by 3 U.S.C. § 301, it is hereby ordered."
	f := &fakeLLM{replies: []string{`{
		"summary": "Directs agencies.",
		"legal_authorities": ["3 U.S.C. § 301", "50 U.S.C. § 1701"]
	}`}}

	e := fastExtractor(f)
	got, err := e.ExtractOrder(context.Background(), orderDoc(text))
	require.NoError(t, err)
	assert.Equal(t, []string{"3 U.S.C. § 301"}, got.LegalAuthorities)
}

func TestExtractRetriesTransientErrors(t *testing.T) {
	f := &fakeLLM{
		errs:    []error{errors.New("status 429"), nil},
		replies: []string{"", `{"summary": "ok"}`},
	}

	e := fastExtractor(f)
	got, err := e.ExtractOpinion(context.Background(), opinionDoc("text"))
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Summary)
	assert.Equal(t, 2, f.calls)
}

func TestExtractGivesUpAfterPersistentErrors(t *testing.T) {
	boom := errors.New("upstream down")
	f := &fakeLLM{errs: []error{boom, boom, boom}}

	e := fastExtractor(f)
	got, err := e.ExtractOrder(context.Background(), orderDoc("text"))
	require.NoError(t, err)
	assert.Equal(t, models.FallbackOrderEnrichment().Summary, got.Summary)
	assert.Equal(t, maxAttempts, f.calls)
}

func TestDecodeJSONStripsCodeFences(t *testing.T) {
	var out map[string]string
	err := decodeJSON("```json\n{\"a\": \"b\"}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "b", out["a"])
}
