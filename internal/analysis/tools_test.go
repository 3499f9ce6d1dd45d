package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStructuredCaller struct {
	calls      int
	lastPrompt string
	respond    func(out any)
	err        error
}

func (f *fakeStructuredCaller) CompleteStructured(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	f.calls++
	f.lastPrompt = userPrompt
	if f.err != nil {
		return f.err
	}
	if f.respond != nil {
		f.respond(out)
	}
	return nil
}

func raw(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}

func TestAnalyzeSentimentEmptyInput(t *testing.T) {
	llm := &fakeStructuredCaller{}
	analyzer := NewAnalyzer(llm)

	result := analyzer.AnalyzeSentiment(context.Background(), nil, "overall mood?")

	payload, ok := result.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "No review data available for sentiment analysis.", payload["error"])
	assert.Equal(t, 0, llm.calls, "empty input must not reach the model")
}

func TestAnalyzeSentimentBlankTextDropped(t *testing.T) {
	llm := &fakeStructuredCaller{}
	analyzer := NewAnalyzer(llm)

	result := analyzer.AnalyzeSentiment(context.Background(), raw(`""`, `{"text": "  "}`), "q")

	payload, ok := result.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, payload["error"], "No review data available")
	assert.Equal(t, 0, llm.calls)
}

func TestAnalyzeSentimentSuccess(t *testing.T) {
	llm := &fakeStructuredCaller{
		respond: func(out any) {
			s := out.(*SentimentSummary)
			s.TotalReviews = 2
			s.MeanRating = 3.5
			s.PositiveShare = 0.5
			s.NegativeShare = 0.5
			s.PositiveThemes = []string{"support"}
			s.NegativeThemes = []string{"pricing"}
		},
	}
	analyzer := NewAnalyzer(llm)

	result := analyzer.AnalyzeSentiment(context.Background(), raw(
		`"Great support team"`,
		`{"text": "Too expensive", "rating": 2}`,
	), "how do customers feel?")

	summary, ok := result.(SentimentSummary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.TotalReviews)
	assert.Equal(t, []string{"pricing"}, summary.NegativeThemes)
	assert.Equal(t, 1, llm.calls)
	assert.True(t, strings.HasPrefix(llm.lastPrompt, "Question: how do customers feel?"))
}

func TestAnalyzeSentimentZeroReviewsReply(t *testing.T) {
	// A non-empty batch the model claims is empty is treated as no data.
	llm := &fakeStructuredCaller{}
	analyzer := NewAnalyzer(llm)

	result := analyzer.AnalyzeSentiment(context.Background(), raw(`"fine"`), "q")

	payload, ok := result.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "No review data available for sentiment analysis.", payload["error"])
	assert.Equal(t, 1, llm.calls)
}

func TestAnalyzeSentimentLLMFailure(t *testing.T) {
	llm := &fakeStructuredCaller{err: errors.New("model unavailable")}
	analyzer := NewAnalyzer(llm)

	result := analyzer.AnalyzeSentiment(context.Background(), raw(`"fine"`), "q")

	payload, ok := result.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Error analyzing sentiment: model unavailable", payload["error"])
}

func TestExtractAspectsZeroAspects(t *testing.T) {
	llm := &fakeStructuredCaller{}
	analyzer := NewAnalyzer(llm)

	result := analyzer.ExtractAspects(context.Background(), raw(`"ok"`), "q")

	payload, ok := result.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "No aspects could be extracted from the review data.", payload["error"])
}

func TestExtractAspectsFillsTotal(t *testing.T) {
	llm := &fakeStructuredCaller{
		respond: func(out any) {
			a := out.(*AspectAnalysis)
			a.Aspects = []Aspect{{
				Name:             "uptime",
				Frequency:        3,
				SentimentScore:   0.8,
				PositiveExamples: []string{"never went down"},
			}}
		},
	}
	analyzer := NewAnalyzer(llm)

	result := analyzer.ExtractAspects(context.Background(), raw(`"Uptime has been flawless"`), "q")

	aspects, ok := result.(AspectAnalysis)
	require.True(t, ok)
	assert.Equal(t, 1, aspects.TotalAspects)
	assert.Equal(t, "uptime", aspects.Aspects[0].Name)
}

func TestAnalyzeJTBDAlwaysBestEffort(t *testing.T) {
	llm := &fakeStructuredCaller{
		respond: func(out any) {
			j := out.(*JTBDInsight)
			j.Job = "Host a reliable site without managing servers"
		},
	}
	analyzer := NewAnalyzer(llm)

	result := analyzer.AnalyzeJTBD(context.Background(), raw(`"ok"`, `"meh"`), "why do they buy?")

	insight, ok := result.(JTBDInsight)
	require.True(t, ok)
	assert.Equal(t, 2, insight.TotalReviews)
	assert.NotEmpty(t, insight.Job)
}

func TestNormalizeReviewsMixedShapes(t *testing.T) {
	items := normalizeReviews(raw(
		`"plain string"`,
		`{"text": "object form", "rating": 4}`,
		`{"rating": 5}`,
		`42`,
	))

	require.Len(t, items, 2)
	assert.Equal(t, reviewItem{Text: "plain string"}, items[0])
	assert.Equal(t, reviewItem{Text: "object form", Rating: 4}, items[1])
}
