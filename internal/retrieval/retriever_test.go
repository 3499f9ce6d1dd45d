package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/review-agent/backend/internal/vector/milvus"
	"github.com/review-agent/backend/pkg/logger"
)

type fakeEmbedder struct {
	embedding []float32
	calls     int
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.embedding, nil
}

type fakeSearcher struct {
	hits     []milvus.SearchHit
	lastExpr string
	lastK    int
}

func (f *fakeSearcher) Search(ctx context.Context, queryEmbedding []float32, limit int, expr string) ([]milvus.SearchHit, error) {
	f.lastExpr = expr
	f.lastK = limit
	return f.hits, nil
}

type fakeCache struct {
	store map[string][]float32
}

func (f *fakeCache) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	e, ok := f.store[textHash]
	return e, ok, nil
}

func (f *fakeCache) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	f.store[textHash] = embedding
	return nil
}

func hit(chunkID, reviewID, text string, embedding []float32) milvus.SearchHit {
	return milvus.SearchHit{
		ChunkID:   chunkID,
		ReviewID:  reviewID,
		Text:      text,
		Embedding: embedding,
	}
}

func TestRetrieveValidation(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{}, nil, DefaultMMRLambda)
	ctx := context.Background()

	_, err := r.Retrieve(ctx, "q", "sentence", "", 0, 30)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = r.Retrieve(ctx, "q", "sentence", "", 12, 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = r.Retrieve(ctx, "q", "paragraph", "", 12, 30)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRetrieveFilterExpression(t *testing.T) {
	searcher := &fakeSearcher{}
	r := NewRetriever(&fakeEmbedder{embedding: []float32{1, 0}}, searcher, nil, DefaultMMRLambda)

	_, err := r.Retrieve(context.Background(), "q", "review", "ovh", 5, 10)
	require.NoError(t, err)

	assert.Equal(t, `chunk_type == "review" && vendor == "ovh"`, searcher.lastExpr)
	assert.Equal(t, 10, searcher.lastK)

	_, err = r.Retrieve(context.Background(), "q", "sentence", "", 5, 10)
	require.NoError(t, err)
	assert.Equal(t, `chunk_type == "sentence"`, searcher.lastExpr)
}

func TestRetrieveDeduplicatesByReview(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []milvus.SearchHit{
			hit("r1_s0", "r1", "first sentence", []float32{1, 0}),
			hit("r1_s1", "r1", "second sentence", []float32{0.99, 0.01}),
			hit("r2_s0", "r2", "other review", []float32{0, 1}),
		},
	}
	r := NewRetriever(&fakeEmbedder{embedding: []float32{1, 0}}, searcher, nil, DefaultMMRLambda)

	snippets, err := r.Retrieve(context.Background(), "q", "sentence", "", 3, 3)
	require.NoError(t, err)

	// Two distinct reviews survive; the second chunk of r1 collapses into
	// the first-ranked one.
	require.Len(t, snippets, 2)
	assert.Equal(t, "first sentence", snippets[0].Text)
	assert.Equal(t, "other review", snippets[1].Text)
}

func TestRetrieveEmptyIsNotAnError(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{embedding: []float32{1, 0}}, &fakeSearcher{}, nil, DefaultMMRLambda)

	snippets, err := r.Retrieve(context.Background(), "q", "sentence", "", 12, 30)
	require.NoError(t, err)
	assert.Empty(t, snippets)
}

func TestRetrieveLogsCompletionOnEmptyResult(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	defer func() { logger.Log = prev }()

	r := NewRetriever(&fakeEmbedder{embedding: []float32{1, 0}}, &fakeSearcher{}, nil, DefaultMMRLambda)

	snippets, err := r.Retrieve(context.Background(), "q", "sentence", "", 12, 30)
	require.NoError(t, err)
	assert.Empty(t, snippets)

	entries := logs.FilterMessage("Retrieval completed").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 0, entries[0].ContextMap()["candidates"])
	assert.EqualValues(t, 0, entries[0].ContextMap()["snippets"])
}

func TestRetrieveUsesEmbeddingCache(t *testing.T) {
	embedder := &fakeEmbedder{embedding: []float32{1, 0}}
	cache := &fakeCache{store: make(map[string][]float32)}
	r := NewRetriever(embedder, &fakeSearcher{}, cache, DefaultMMRLambda)

	ctx := context.Background()
	_, err := r.Retrieve(ctx, "same question", "sentence", "", 5, 10)
	require.NoError(t, err)
	_, err = r.Retrieve(ctx, "same question", "sentence", "", 5, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls)
}

func TestRetrieveSnippetMapping(t *testing.T) {
	searcher := &fakeSearcher{
		hits: []milvus.SearchHit{
			{
				ChunkID:      "r1",
				ReviewID:     "r1",
				Text:         "Great uptime",
				Name:         "Alice",
				Date:         "2024-03-01",
				Score:        4,
				Vendor:       "ovh",
				ReviewHeader: "Happy customer",
				Embedding:    []float32{1, 0},
			},
		},
	}
	r := NewRetriever(&fakeEmbedder{embedding: []float32{1, 0}}, searcher, nil, DefaultMMRLambda)

	snippets, err := r.Retrieve(context.Background(), "q", "review", "", 1, 1)
	require.NoError(t, err)
	require.Len(t, snippets, 1)

	s := snippets[0]
	assert.Equal(t, "Great uptime", s.Text)
	assert.Equal(t, 4, s.Rating)
	assert.Equal(t, "Alice", s.Source)
	assert.Equal(t, "ovh", s.Vendor)
	assert.Equal(t, "Happy customer", s.ReviewHeader)
}
