package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/llm"
	"github.com/review-agent/backend/internal/retrieval"
	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/pkg/logger"
)

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// SimpleRAG is the single-shot retrieve-then-answer path: one retrieval, one
// completion, no tools and no conversation memory.
type SimpleRAG struct {
	model     Completer
	retriever Retriever
}

func NewSimpleRAG(model Completer, retriever Retriever) *SimpleRAG {
	return &SimpleRAG{model: model, retriever: retriever}
}

// Answer retrieves context for the question and generates a grounded reply.
// Malformed retrieval parameters surface as a validation error; other
// failures produce an apologetic response with empty logs so the response
// shape stays uniform across modes.
func (s *SimpleRAG) Answer(ctx context.Context, req Request) (*Result, error) {
	defaults := defaultsFor(req)

	snippets, err := s.retriever.Retrieve(ctx, req.Question, defaults.ChunkType, defaults.Vendor, defaults.TopK, defaults.FetchK)
	if err != nil {
		if errors.Is(err, retrieval.ErrValidation) {
			return nil, err
		}
		logger.Error("Retrieval failed in simple mode", zap.Error(err))
		return &Result{
			Response:    fmt.Sprintf("I could not search the reviews: %s", err.Error()),
			ToolOutputs: []models.ToolOutput{},
			Snippets:    []models.Snippet{},
		}, nil
	}

	resp, err := s.model.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: fmt.Sprintf(simpleSystemPrompt, retrieval.FormatSnippets(snippets)),
		UserPrompt:   req.Question,
	})
	if err != nil {
		logger.Error("Completion failed in simple mode", zap.Error(err))
		return &Result{
			Response:    fmt.Sprintf("I could not generate an answer: %s", err.Error()),
			ToolOutputs: []models.ToolOutput{},
			Snippets:    snippets,
		}, nil
	}

	return &Result{
		Response:    resp.Content,
		ToolOutputs: []models.ToolOutput{},
		Snippets:    snippets,
	}, nil
}

// defaultsFor fills omitted retrieval settings. Caller-supplied values pass
// through untouched so invalid combinations reach the retriever's
// validation instead of being silently repaired; the fetch_k floor applies
// only when fetch_k itself was omitted.
func defaultsFor(req Request) Defaults {
	d := Defaults{
		ChunkType: req.ChunkType,
		Vendor:    req.Vendor,
		TopK:      req.TopK,
		FetchK:    req.FetchK,
	}

	if d.ChunkType == "" {
		d.ChunkType = "sentence"
	}
	if d.TopK <= 0 {
		d.TopK = retrieval.DefaultTopK
	}
	if d.FetchK <= 0 {
		d.FetchK = retrieval.DefaultFetchK
		if d.FetchK < d.TopK {
			d.FetchK = d.TopK
		}
	}

	return d
}
