package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/pkg/logger"
)

// Client caches query embeddings so repeated questions against the same
// index skip the embedding round trip.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("embedding:%s", textHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set embedding cache: %w", err)
	}

	return nil
}

func (c *Client) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("embedding:%s", textHash)).Bytes()
	if err == redis.Nil {
		metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var embedding []float32
	err = json.Unmarshal(data, &embedding)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
	logger.Debug("Embedding cache hit", zap.String("text_hash", textHash))
	return embedding, true, nil
}
