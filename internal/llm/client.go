package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/pkg/circuitbreaker"
	"github.com/review-agent/backend/pkg/logger"
	"github.com/review-agent/backend/pkg/retry"
)

type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	accountant     *Accountant
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func NewClient(apiKey, model, embeddingModel string, temperature float32, maxTokens int, accountant *Accountant) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.String("embedding_model", embeddingModel),
	)

	return &Client{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    temperature,
		maxTokens:      maxTokens,
		accountant:     accountant,
		cb:             cb,
		retryConfig:    retryConfig,
	}
}

func (c *Client) recordUsage(usage openai.Usage, kind string) {
	c.accountant.Add(usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
	metrics.LLMTokensUsed.WithLabelValues(c.model, kind).Add(float64(usage.TotalTokens))
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			c.recordUsage(resp.Usage, "completion")

			result = &CompletionResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Chat runs one reasoning step over the full message history with the given
// toolbox bound. The returned assistant message may carry tool calls.
func (c *Client) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	var result openai.ChatCompletionMessage

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Tools:       tools,
					Temperature: c.temperature,
					MaxTokens:   c.maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create chat completion: %w", err)
			}

			c.recordUsage(resp.Usage, "chat")

			result = resp.Choices[0].Message

			logger.Debug("Chat completion generated",
				zap.Int("tool_calls", len(result.ToolCalls)),
				zap.Int("total_tokens", resp.Usage.TotalTokens),
			)

			return nil
		})
	})

	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}

	return result, nil
}

// CompleteStructured asks the model for a JSON object and unmarshals it into
// out. The target schema is described in the system prompt; JSON mode keeps
// the reply parseable. Either out holds a valid record or an error is
// returned - there is no partial success.
func (c *Client) CompleteStructured(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: userPrompt,
		},
	}

	return c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: c.temperature,
					MaxTokens:   c.maxTokens,
					ResponseFormat: &openai.ChatCompletionResponseFormat{
						Type: openai.ChatCompletionResponseFormatTypeJSONObject,
					},
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create structured completion: %w", err)
			}

			c.recordUsage(resp.Usage, "structured")

			content := strings.TrimSpace(resp.Choices[0].Message.Content)
			if err := json.Unmarshal([]byte(content), out); err != nil {
				return fmt.Errorf("failed to parse structured output: %w", err)
			}

			return nil
		})
	})
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return embedding, nil
}

func (c *Client) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var embeddings [][]float32

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.embeddingModel),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}
