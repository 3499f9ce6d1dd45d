package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/review-agent/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// ReviewChunk is one indexable unit: either a whole review or a single
// sentence. Sentence chunks carry ParentID and SentenceIdx; review chunks
// leave them empty. ReviewID always resolves to the source review.
type ReviewChunk struct {
	ID           string
	Embedding    []float32
	Text         string
	Name         string
	Country      string
	Date         string
	Score        int64
	Vendor       string
	ReviewID     string
	ChunkType    string
	ParentID     string
	SentenceIdx  int64
	ReviewHeader string
}

type SearchHit struct {
	ChunkID      string
	Text         string
	Name         string
	Date         string
	Score        int64
	Vendor       string
	ReviewID     string
	ChunkType    string
	ReviewHeader string
	Embedding    []float32
	Distance     float32
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(
		context.Background(),
		endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	varchar := func(name string, maxLength int) *entity.Field {
		return &entity.Field{
			Name:     name,
			DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{
				"max_length": fmt.Sprintf("%d", maxLength),
			},
		}
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Customer review embeddings (review-level and sentence-level chunks)",
		Fields: []*entity.Field{
			{
				Name:       "chunk_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			varchar("text", 8192),
			varchar("name", 256),
			varchar("country", 64),
			varchar("date", 64),
			{
				Name:     "score",
				DataType: entity.FieldTypeInt64,
			},
			varchar("vendor", 64),
			varchar("review_id", 64),
			varchar("chunk_type", 16),
			varchar("parent_id", 64),
			{
				Name:     "sentence_idx",
				DataType: entity.FieldTypeInt64,
			},
			varchar("review_header", 1024),
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to build index definition: %w", err)
	}

	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, chunks []ReviewChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	texts := make([]string, len(chunks))
	names := make([]string, len(chunks))
	countries := make([]string, len(chunks))
	dates := make([]string, len(chunks))
	scores := make([]int64, len(chunks))
	vendors := make([]string, len(chunks))
	reviewIDs := make([]string, len(chunks))
	chunkTypes := make([]string, len(chunks))
	parentIDs := make([]string, len(chunks))
	sentenceIdxs := make([]int64, len(chunks))
	headers := make([]string, len(chunks))

	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
		embeddings[i] = chunk.Embedding
		texts[i] = chunk.Text
		names[i] = chunk.Name
		countries[i] = chunk.Country
		dates[i] = chunk.Date
		scores[i] = chunk.Score
		vendors[i] = chunk.Vendor
		reviewIDs[i] = chunk.ReviewID
		chunkTypes[i] = chunk.ChunkType
		parentIDs[i] = chunk.ParentID
		sentenceIdxs[i] = chunk.SentenceIdx
		headers[i] = chunk.ReviewHeader
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("name", names),
		entity.NewColumnVarChar("country", countries),
		entity.NewColumnVarChar("date", dates),
		entity.NewColumnInt64("score", scores),
		entity.NewColumnVarChar("vendor", vendors),
		entity.NewColumnVarChar("review_id", reviewIDs),
		entity.NewColumnVarChar("chunk_type", chunkTypes),
		entity.NewColumnVarChar("parent_id", parentIDs),
		entity.NewColumnInt64("sentence_idx", sentenceIdxs),
		entity.NewColumnVarChar("review_header", headers),
	)

	if err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Chunks inserted into vector index", zap.Int("count", len(chunks)))

	return nil
}

// Search returns the limit nearest neighbors under the given boolean filter
// expression. Stored embeddings are returned alongside the payload fields so
// the caller can rerank candidates (MMR) without a second round trip.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, limit int, expr string) ([]SearchHit, error) {
	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"chunk_id", "text", "name", "date", "score", "vendor", "review_id", "chunk_type", "review_header", "embedding"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchHit, 0)
	for _, sr := range searchResult {
		var vectors [][]float32
		if col := sr.Fields.GetColumn("embedding"); col != nil {
			if vecCol, ok := col.(*entity.ColumnFloatVector); ok {
				vectors = vecCol.Data()
			}
		}

		for i := 0; i < sr.ResultCount; i++ {
			hit := SearchHit{Distance: sr.Scores[i]}

			if v, err := sr.Fields.GetColumn("chunk_id").Get(i); err == nil {
				hit.ChunkID, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("text").Get(i); err == nil {
				hit.Text, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("name").Get(i); err == nil {
				hit.Name, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("date").Get(i); err == nil {
				hit.Date, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("score").Get(i); err == nil {
				hit.Score, _ = v.(int64)
			}
			if v, err := sr.Fields.GetColumn("vendor").Get(i); err == nil {
				hit.Vendor, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("review_id").Get(i); err == nil {
				hit.ReviewID, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("chunk_type").Get(i); err == nil {
				hit.ChunkType, _ = v.(string)
			}
			if v, err := sr.Fields.GetColumn("review_header").Get(i); err == nil {
				hit.ReviewHeader, _ = v.(string)
			}
			if i < len(vectors) {
				hit.Embedding = vectors[i]
			}

			results = append(results, hit)
		}
	}

	logger.Debug("Vector search completed",
		zap.Int("limit", limit),
		zap.Int("results", len(results)),
		zap.String("filter", expr),
	)

	return results, nil
}

func (m *Client) DropCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return nil
	}
	if err := m.client.DropCollection(ctx, m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	logger.Info("Collection dropped", zap.String("collection", m.collectionName))
	return nil
}
