package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/internal/vector/milvus"
	"github.com/review-agent/backend/pkg/logger"
	"github.com/review-agent/backend/pkg/utils"
)

var ErrValidation = errors.New("invalid retrieval parameters")

const (
	DefaultTopK      = 12
	DefaultFetchK    = 30
	DefaultMMRLambda = 0.5

	embeddingCacheTTL = time.Hour
)

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, queryEmbedding []float32, limit int, expr string) ([]milvus.SearchHit, error)
}

type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Retriever runs filtered vector search with MMR reranking and per-review
// deduplication on top of the chunk index.
type Retriever struct {
	embedder  Embedder
	searcher  VectorSearcher
	cache     EmbeddingCache
	mmrLambda float64
}

// NewRetriever builds a retriever. cache may be nil, in which case every
// query is embedded fresh.
func NewRetriever(embedder Embedder, searcher VectorSearcher, cache EmbeddingCache, mmrLambda float64) *Retriever {
	if mmrLambda <= 0 || mmrLambda > 1 {
		mmrLambda = DefaultMMRLambda
	}

	return &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		cache:     cache,
		mmrLambda: mmrLambda,
	}
}

// Retrieve searches the index for chunks matching the query. chunkType must
// be "sentence" or "review"; vendor is optional and, when set, restricts the
// candidate pool before reranking. fetchK candidates are pulled, reranked
// with MMR down to topK, then collapsed to one snippet per source review
// keeping the first-ranked chunk. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query, chunkType, vendor string, topK, fetchK int) ([]models.Snippet, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", ErrValidation, topK)
	}
	if fetchK < topK {
		return nil, fmt.Errorf("%w: fetch_k (%d) must be at least top_k (%d)", ErrValidation, fetchK, topK)
	}
	if chunkType != "sentence" && chunkType != "review" {
		return nil, fmt.Errorf("%w: chunk_type must be \"sentence\" or \"review\", got %q", ErrValidation, chunkType)
	}

	embedding, err := r.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	expr := fmt.Sprintf("chunk_type == %q", chunkType)
	if vendor != "" {
		expr += fmt.Sprintf(" && vendor == %q", vendor)
	}

	hits, err := r.searcher.Search(ctx, embedding, fetchK, expr)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	if len(hits) == 0 {
		metrics.RetrievalResults.Observe(0)
		logger.Debug("Retrieval completed",
			zap.String("chunk_type", chunkType),
			zap.String("vendor", vendor),
			zap.Int("candidates", 0),
			zap.Int("snippets", 0),
		)
		return nil, nil
	}

	vectors := make([][]float32, len(hits))
	for i, h := range hits {
		vectors[i] = h.Embedding
	}

	order := maximalMarginalRelevance(embedding, vectors, r.mmrLambda, topK)

	seen := make(map[string]bool, len(order))
	snippets := make([]models.Snippet, 0, len(order))
	for _, idx := range order {
		hit := hits[idx]
		if hit.ReviewID != "" && seen[hit.ReviewID] {
			continue
		}
		seen[hit.ReviewID] = true
		snippets = append(snippets, hitToSnippet(hit))
	}

	metrics.RetrievalResults.Observe(float64(len(snippets)))
	logger.Debug("Retrieval completed",
		zap.String("chunk_type", chunkType),
		zap.String("vendor", vendor),
		zap.Int("candidates", len(hits)),
		zap.Int("snippets", len(snippets)),
	)

	return snippets, nil
}

func (r *Retriever) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if r.cache == nil {
		return r.embedder.GenerateEmbedding(ctx, query)
	}

	hash := utils.HashString(query)
	if cached, found, err := r.cache.GetEmbedding(ctx, hash); err == nil && found {
		return cached, nil
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetEmbedding(ctx, hash, embedding, embeddingCacheTTL); err != nil {
		logger.Warn("Failed to cache query embedding", zap.Error(err))
	}

	return embedding, nil
}

func hitToSnippet(hit milvus.SearchHit) models.Snippet {
	return models.Snippet{
		Text:         hit.Text,
		Rating:       int(hit.Score),
		Date:         hit.Date,
		Source:       hit.Name,
		Vendor:       hit.Vendor,
		ReviewHeader: hit.ReviewHeader,
	}
}
