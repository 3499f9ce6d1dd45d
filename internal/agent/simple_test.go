package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/review-agent/backend/internal/llm"
	"github.com/review-agent/backend/internal/retrieval"
	"github.com/review-agent/backend/internal/storage/models"
)

type fakeCompleter struct {
	lastSystem string
	content    string
	err        error
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastSystem = req.SystemPrompt
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func TestSimpleRAGAnswer(t *testing.T) {
	completer := &fakeCompleter{content: "Customers like the support."}
	retriever := &fakeRetriever{
		snippets: []models.Snippet{
			{Text: "Support replied fast", Rating: 5, Date: "2024-01-01", Source: "Alice"},
		},
	}

	rag := NewSimpleRAG(completer, retriever)
	result, err := rag.Answer(context.Background(), Request{Question: "How is support?"})

	require.NoError(t, err)
	assert.Equal(t, "Customers like the support.", result.Response)
	require.Len(t, result.Snippets, 1)
	assert.Empty(t, result.ToolOutputs)
	assert.Contains(t, completer.lastSystem, "[Alice | 2024-01-01 | Score: 5] Support replied fast")
}

func TestSimpleRAGEmptyRetrieval(t *testing.T) {
	completer := &fakeCompleter{content: "I found no relevant reviews."}
	rag := NewSimpleRAG(completer, &fakeRetriever{})

	result, err := rag.Answer(context.Background(), Request{Question: "Anything about billing?"})

	require.NoError(t, err)
	assert.Contains(t, completer.lastSystem, "No relevant reviews found.")
	assert.Empty(t, result.Snippets)
	assert.Equal(t, "I found no relevant reviews.", result.Response)
}

func TestSimpleRAGRetrievalFailure(t *testing.T) {
	rag := NewSimpleRAG(&fakeCompleter{}, &fakeRetriever{err: errors.New("index offline")})

	result, err := rag.Answer(context.Background(), Request{Question: "Anything?"})

	require.NoError(t, err)
	assert.Contains(t, result.Response, "index offline")
	assert.Empty(t, result.Snippets)
	assert.Empty(t, result.ToolOutputs)
}

func TestSimpleRAGValidationErrorPropagates(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("%w: fetch_k too small", retrieval.ErrValidation)}
	rag := NewSimpleRAG(&fakeCompleter{}, retriever)

	result, err := rag.Answer(context.Background(), Request{Question: "Anything?", TopK: 10, FetchK: 5})

	require.ErrorIs(t, err, retrieval.ErrValidation)
	assert.Nil(t, result)
	// The caller's pair must reach the retriever unrepaired.
	assert.Equal(t, 10, retriever.lastTopK)
	assert.Equal(t, 5, retriever.lastFetchK)
}

func TestDefaultsForKeepsSuppliedValues(t *testing.T) {
	d := defaultsFor(Request{TopK: 10, FetchK: 5})
	assert.Equal(t, 10, d.TopK)
	assert.Equal(t, 5, d.FetchK)

	// Omitted fetch_k still gets a floor at top_k.
	d = defaultsFor(Request{TopK: 50})
	assert.Equal(t, 50, d.TopK)
	assert.Equal(t, 50, d.FetchK)

	d = defaultsFor(Request{})
	assert.Equal(t, retrieval.DefaultTopK, d.TopK)
	assert.Equal(t, retrieval.DefaultFetchK, d.FetchK)
}
