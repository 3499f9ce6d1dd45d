package agent

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/pkg/logger"
)

const (
	toolRetrieveReviews   = "retrieve_reviews"
	toolSentimentAnalysis = "sentiment_analysis"
	toolAspectExtraction  = "aspect_extraction"
	toolJTBDAnalysis      = "jtbd_analysis"
)

type Retriever interface {
	Retrieve(ctx context.Context, query, chunkType, vendor string, topK, fetchK int) ([]models.Snippet, error)
}

type Analyzer interface {
	AnalyzeSentiment(ctx context.Context, reviews []json.RawMessage, question string) any
	ExtractAspects(ctx context.Context, reviews []json.RawMessage, question string) any
	AnalyzeJTBD(ctx context.Context, reviews []json.RawMessage, question string) any
}

// Defaults are the per-request retrieval settings applied when a tool call
// omits the corresponding argument.
type Defaults struct {
	ChunkType string
	Vendor    string
	TopK      int
	FetchK    int
}

// Toolbox dispatches the agent's tool calls. Retrieval results append to the
// snippet log; analysis results append to the tool output log. Every call
// yields a well-formed tool message, errors included, so the reasoning loop
// always has something to continue from.
type Toolbox struct {
	retriever Retriever
	analyzer  Analyzer
}

func NewToolbox(retriever Retriever, analyzer Analyzer) *Toolbox {
	return &Toolbox{retriever: retriever, analyzer: analyzer}
}

func (t *Toolbox) Execute(ctx context.Context, call openai.ToolCall, defaults Defaults, state *State) openai.ChatCompletionMessage {
	content, status, err := t.dispatch(ctx, call, defaults, state)
	if err != nil {
		content = fmt.Sprintf("Error executing %s: %s", call.Function.Name, err.Error())
		logger.Warn("Tool execution failed",
			zap.String("tool", call.Function.Name),
			zap.Error(err),
		)
	}
	metrics.ToolExecutions.WithLabelValues(call.Function.Name, status).Inc()

	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		ToolCallID: call.ID,
	}
}

func (t *Toolbox) dispatch(ctx context.Context, call openai.ToolCall, defaults Defaults, state *State) (string, string, error) {
	var content string
	var err error

	switch call.Function.Name {
	case toolRetrieveReviews:
		content, err = t.runRetrieve(ctx, call.Function.Arguments, defaults, state)
	case toolSentimentAnalysis:
		content, err = t.runAnalysis(ctx, call.Function.Arguments, toolSentimentAnalysis, state, t.analyzer.AnalyzeSentiment)
	case toolAspectExtraction:
		content, err = t.runAnalysis(ctx, call.Function.Arguments, toolAspectExtraction, state, t.analyzer.ExtractAspects)
	case toolJTBDAnalysis:
		content, err = t.runAnalysis(ctx, call.Function.Arguments, toolJTBDAnalysis, state, t.analyzer.AnalyzeJTBD)
	default:
		return fmt.Sprintf("Error: Unknown tool '%s'", call.Function.Name), "unknown", nil
	}

	if err != nil {
		return "", "error", err
	}
	return content, "success", nil
}

func (t *Toolbox) runRetrieve(ctx context.Context, arguments string, defaults Defaults, state *State) (string, error) {
	var args struct {
		Question  string `json:"question"`
		ChunkType string `json:"chunk_type"`
		Vendor    string `json:"vendor"`
		TopK      int    `json:"top_k"`
		FetchK    int    `json:"fetch_k"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if args.ChunkType == "" {
		args.ChunkType = defaults.ChunkType
	}
	if args.Vendor == "" {
		args.Vendor = defaults.Vendor
	}
	if args.TopK <= 0 {
		args.TopK = defaults.TopK
	}
	if args.FetchK <= 0 {
		args.FetchK = defaults.FetchK
	}

	snippets, err := t.retriever.Retrieve(ctx, args.Question, args.ChunkType, args.Vendor, args.TopK, args.FetchK)
	if err != nil {
		return "", err
	}

	state.Snippets = append(state.Snippets, snippets...)

	if snippets == nil {
		snippets = []models.Snippet{}
	}
	encoded, err := json.Marshal(map[string]any{
		"snippets": snippets,
		"count":    len(snippets),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}

	return string(encoded), nil
}

func (t *Toolbox) runAnalysis(ctx context.Context, arguments, name string, state *State, run func(context.Context, []json.RawMessage, string) any) (string, error) {
	var args struct {
		Reviews  []json.RawMessage `json:"reviews"`
		Question string            `json:"question"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	output := run(ctx, args.Reviews, args.Question)

	state.ToolOutputs = append(state.ToolOutputs, models.ToolOutput{
		Name:   name,
		Output: output,
	})

	encoded, err := json.Marshal(output)
	if err != nil {
		return "", fmt.Errorf("failed to encode output: %w", err)
	}

	return string(encoded), nil
}

// Definitions returns the tool schemas bound to each reasoning step.
func (t *Toolbox) Definitions() []openai.Tool {
	reviewsSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reviews": map[string]any{
				"type":        "array",
				"description": "Review texts to analyze, either plain strings or {text, rating} objects, as returned by retrieve_reviews.",
				"items": map[string]any{
					"anyOf": []any{
						map[string]any{"type": "string"},
						map[string]any{
							"type": "object",
							"properties": map[string]any{
								"text":   map[string]any{"type": "string"},
								"rating": map[string]any{"type": "number"},
							},
							"required": []string{"text"},
						},
					},
				},
			},
			"question": map[string]any{
				"type":        "string",
				"description": "The user's question, to focus the analysis.",
			},
		},
		"required": []string{"reviews"},
	}

	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolRetrieveReviews,
				Description: "Semantic search over indexed customer reviews. Returns the matching snippets and their count.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "What to search the reviews for.",
						},
						"chunk_type": map[string]any{
							"type":        "string",
							"enum":        []string{"sentence", "review"},
							"description": "Search granularity: individual sentences or whole reviews.",
						},
						"vendor": map[string]any{
							"type":        "string",
							"description": "Restrict results to one vendor.",
						},
						"top_k": map[string]any{
							"type":        "integer",
							"description": "Number of results to return.",
						},
						"fetch_k": map[string]any{
							"type":        "integer",
							"description": "Candidate pool size before diversity reranking.",
						},
					},
					"required": []string{"question"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolSentimentAnalysis,
				Description: "Summarize overall sentiment across a batch of review texts: mean rating, positive/negative shares, recurring themes.",
				Parameters:  reviewsSchema,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolAspectExtraction,
				Description: "Extract the concrete product or service aspects a batch of reviews mentions, with per-aspect sentiment.",
				Parameters:  reviewsSchema,
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolJTBDAnalysis,
				Description: "Infer the jobs-to-be-done behind a batch of reviews: what customers were trying to accomplish and where the product fell short.",
				Parameters:  reviewsSchema,
			},
		},
	}
}
