package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/review-agent/backend/pkg/logger"
)

// StructuredCaller produces a JSON-mode completion parsed into out.
type StructuredCaller interface {
	CompleteStructured(ctx context.Context, systemPrompt, userPrompt string, out any) error
}

// reviewItem is the normalized unit the analysis prompts consume. Rating 0
// means unknown.
type reviewItem struct {
	Text   string `json:"text"`
	Rating int    `json:"rating"`
}

// Analyzer runs the LLM-backed analysis tools. Every method returns a JSON-
// serializable value; failures surface as an {"error": ...} payload rather
// than an error so a failed tool never aborts the conversation.
type Analyzer struct {
	llm StructuredCaller
}

func NewAnalyzer(llm StructuredCaller) *Analyzer {
	return &Analyzer{llm: llm}
}

func errorPayload(message string) map[string]string {
	return map[string]string{"error": message}
}

// normalizeReviews accepts the loose review payload tools receive: an array
// whose elements are either plain strings or objects carrying text and an
// optional rating. Elements with empty text are dropped.
func normalizeReviews(raw []json.RawMessage) []reviewItem {
	items := make([]reviewItem, 0, len(raw))

	for _, element := range raw {
		var text string
		if err := json.Unmarshal(element, &text); err == nil {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				items = append(items, reviewItem{Text: trimmed})
			}
			continue
		}

		var obj struct {
			Text   string  `json:"text"`
			Rating float64 `json:"rating"`
		}
		if err := json.Unmarshal(element, &obj); err != nil {
			continue
		}
		if trimmed := strings.TrimSpace(obj.Text); trimmed != "" {
			items = append(items, reviewItem{Text: trimmed, Rating: int(obj.Rating)})
		}
	}

	return items
}

func buildUserPrompt(question string, items []reviewItem) (string, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Question: %s\n\nReviews:\n%s", question, payload), nil
}

// AnalyzeSentiment summarizes the overall sentiment of a review batch.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, reviews []json.RawMessage, question string) any {
	items := normalizeReviews(reviews)
	if len(items) == 0 {
		return errorPayload("No review data available for sentiment analysis.")
	}

	prompt, err := buildUserPrompt(question, items)
	if err != nil {
		return errorPayload("Error analyzing sentiment: " + err.Error())
	}

	var summary SentimentSummary
	if err := a.llm.CompleteStructured(ctx, sentimentSystemPrompt, prompt, &summary); err != nil {
		logger.Error("Sentiment analysis failed", zap.Error(err))
		return errorPayload("Error analyzing sentiment: " + err.Error())
	}

	// A model claiming zero analyzed reviews on a non-empty batch is a
	// refusal, not a result.
	if summary.TotalReviews == 0 {
		return errorPayload("No review data available for sentiment analysis.")
	}

	return summary
}

// ExtractAspects pulls out the concrete product aspects reviews mention.
func (a *Analyzer) ExtractAspects(ctx context.Context, reviews []json.RawMessage, question string) any {
	items := normalizeReviews(reviews)
	if len(items) == 0 {
		return errorPayload("No review data available for aspect extraction.")
	}

	prompt, err := buildUserPrompt(question, items)
	if err != nil {
		return errorPayload("Error extracting aspects: " + err.Error())
	}

	var result AspectAnalysis
	if err := a.llm.CompleteStructured(ctx, aspectSystemPrompt, prompt, &result); err != nil {
		logger.Error("Aspect extraction failed", zap.Error(err))
		return errorPayload("Error extracting aspects: " + err.Error())
	}

	if len(result.Aspects) == 0 {
		return errorPayload("No aspects could be extracted from the review data.")
	}
	if result.TotalAspects == 0 {
		result.TotalAspects = len(result.Aspects)
	}

	return result
}

// AnalyzeJTBD produces a jobs-to-be-done reading of the reviews. This tool
// is best-effort: sparse input still yields an insight rather than an error.
func (a *Analyzer) AnalyzeJTBD(ctx context.Context, reviews []json.RawMessage, question string) any {
	items := normalizeReviews(reviews)
	if len(items) == 0 {
		return errorPayload("No review data available for jobs-to-be-done analysis.")
	}

	prompt, err := buildUserPrompt(question, items)
	if err != nil {
		return errorPayload("Error analyzing jobs-to-be-done: " + err.Error())
	}

	var insight JTBDInsight
	if err := a.llm.CompleteStructured(ctx, jtbdSystemPrompt, prompt, &insight); err != nil {
		logger.Error("JTBD analysis failed", zap.Error(err))
		return errorPayload("Error analyzing jobs-to-be-done: " + err.Error())
	}

	insight.TotalReviews = len(items)

	return insight
}
