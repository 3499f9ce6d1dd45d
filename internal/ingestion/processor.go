package ingestion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/internal/vector/milvus"
	"github.com/review-agent/backend/pkg/logger"
	"github.com/review-agent/backend/pkg/retry"
)

type Embedder interface {
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	CreateCollection(ctx context.Context) error
	Insert(ctx context.Context, chunks []milvus.ReviewChunk) error
}

type ReviewStore interface {
	ReplaceReviews(records []models.ReviewRecord) error
}

type Processor struct {
	embedder    Embedder
	vectorStore VectorStore
	reviewStore ReviewStore
	batchSize   int
	retryConfig retry.Config
}

func NewProcessor(embedder Embedder, vectorStore VectorStore, reviewStore ReviewStore, batchSize int) *Processor {
	if batchSize <= 0 {
		batchSize = 1000
	}

	return &Processor{
		embedder:    embedder,
		vectorStore: vectorStore,
		reviewStore: reviewStore,
		batchSize:   batchSize,
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   time.Second,
			MaxDelay:       10 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}
}

// IngestAll stores the raw reviews, builds review- and sentence-level
// documents, and indexes them in embedding batches. Each batch is embedded
// and inserted under retry so one transient failure does not abort a long
// ingestion run.
func (p *Processor) IngestAll(ctx context.Context, records []models.ReviewRecord) error {
	if err := p.reviewStore.ReplaceReviews(records); err != nil {
		return fmt.Errorf("failed to store reviews: %w", err)
	}

	docs, failures := BuildDocuments(records)
	if failures > 0 {
		metrics.IngestFailures.WithLabelValues("segmentation").Add(float64(failures))
	}

	logger.Info("Documents built",
		zap.Int("reviews", len(records)),
		zap.Int("documents", len(docs)),
		zap.Int("segmentation_failures", failures),
	)

	if err := p.vectorStore.CreateCollection(ctx); err != nil {
		return fmt.Errorf("failed to prepare collection: %w", err)
	}

	for start := 0; start < len(docs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		err := retry.Do(ctx, p.retryConfig, func() error {
			return p.indexBatch(ctx, batch)
		})
		if err != nil {
			return fmt.Errorf("failed to index batch %d-%d: %w", start, end, err)
		}

		logger.Info("Batch indexed", zap.Int("start", start), zap.Int("count", len(batch)))
	}

	return nil
}

func (p *Processor) indexBatch(ctx context.Context, docs []Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	embeddings, err := p.embedder.GenerateBatchEmbeddings(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("embedding count mismatch: got %d for %d documents", len(embeddings), len(docs))
	}

	chunks := make([]milvus.ReviewChunk, len(docs))
	for i, doc := range docs {
		chunks[i] = milvus.ReviewChunk{
			ID:           doc.ID,
			Embedding:    embeddings[i],
			Text:         doc.Content,
			Name:         doc.Name,
			Country:      doc.Country,
			Date:         doc.Date,
			Score:        int64(doc.Score),
			Vendor:       doc.Vendor,
			ReviewID:     doc.ReviewID,
			ChunkType:    doc.ChunkType,
			ParentID:     doc.ParentID,
			SentenceIdx:  int64(doc.SentenceIdx),
			ReviewHeader: doc.ReviewHeader,
		}
	}

	if err := p.vectorStore.Insert(ctx, chunks); err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}

	for _, doc := range docs {
		metrics.DocumentsIndexed.WithLabelValues(doc.ChunkType).Inc()
	}

	return nil
}
