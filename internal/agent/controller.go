package agent

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/llm"
	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/retrieval"
	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/pkg/logger"
)

const DefaultMaxRounds = 8

type ChatModel interface {
	Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error)
}

type Request struct {
	Question  string
	ChunkType string
	Vendor    string
	TopK      int
	FetchK    int
	ThreadID  string
}

// Result carries the final answer plus the full accumulated logs for the
// thread, not just this turn's additions.
type Result struct {
	Response    string
	ToolOutputs []models.ToolOutput
	Snippets    []models.Snippet
}

// Controller runs the tool-routing conversation loop: reasoning steps
// alternate with tool execution until the model answers without tool calls
// or the round cap is hit. State is checkpointed after every transition so a
// crash mid-turn loses at most one step.
type Controller struct {
	model      ChatModel
	toolbox    *Toolbox
	store      *CheckpointStore
	accountant *llm.Accountant
	maxRounds  int
}

// NewController builds the agent loop. accountant may be nil to disable
// budget enforcement.
func NewController(model ChatModel, toolbox *Toolbox, store *CheckpointStore, accountant *llm.Accountant, maxRounds int) *Controller {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	return &Controller{
		model:      model,
		toolbox:    toolbox,
		store:      store,
		accountant: accountant,
		maxRounds:  maxRounds,
	}
}

func (c *Controller) Respond(ctx context.Context, req Request) (*Result, error) {
	defaults := defaultsFor(req)
	if defaults.FetchK < defaults.TopK {
		return nil, fmt.Errorf("%w: fetch_k %d is less than top_k %d", retrieval.ErrValidation, defaults.FetchK, defaults.TopK)
	}

	unlock := c.store.Lock(req.ThreadID)
	defer unlock()

	if c.accountant != nil && c.accountant.Exceeded() {
		return nil, fmt.Errorf("token budget exhausted")
	}

	state, err := c.store.Load(ctx, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread state: %w", err)
	}

	if len(state.Messages) == 0 {
		state.Messages = append(state.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}

	state.Messages = append(state.Messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Question,
	})
	if err := c.store.Save(ctx, req.ThreadID, state); err != nil {
		return nil, fmt.Errorf("failed to checkpoint thread: %w", err)
	}

	tools := c.toolbox.Definitions()

	response := ""
	rounds := 0

	for rounds < c.maxRounds {
		rounds++

		assistant, err := c.model.Chat(ctx, state.Messages, tools)
		if err != nil {
			logger.Error("Reasoning step failed",
				zap.String("thread_id", req.ThreadID),
				zap.Int("round", rounds),
				zap.Error(err),
			)

			response = fmt.Sprintf("I ran into an error while processing your question: %s", err.Error())
			state.Messages = append(state.Messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: response,
			})
			break
		}

		state.Messages = append(state.Messages, assistant)
		if err := c.store.Save(ctx, req.ThreadID, state); err != nil {
			return nil, fmt.Errorf("failed to checkpoint thread: %w", err)
		}

		if len(assistant.ToolCalls) == 0 {
			response = assistant.Content
			break
		}

		for _, call := range assistant.ToolCalls {
			toolMsg := c.toolbox.Execute(ctx, call, defaults, state)
			state.Messages = append(state.Messages, toolMsg)
		}
		if err := c.store.Save(ctx, req.ThreadID, state); err != nil {
			return nil, fmt.Errorf("failed to checkpoint thread: %w", err)
		}
	}

	if response == "" {
		response = "I could not complete the analysis within the allowed number of steps. Try a more specific question."
		state.Messages = append(state.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: response,
		})
	}

	if err := c.store.Save(ctx, req.ThreadID, state); err != nil {
		return nil, fmt.Errorf("failed to checkpoint thread: %w", err)
	}

	metrics.AgentRounds.Observe(float64(rounds))
	logger.Info("Agent turn completed",
		zap.String("thread_id", req.ThreadID),
		zap.Int("rounds", rounds),
		zap.Int("tool_outputs", len(state.ToolOutputs)),
		zap.Int("snippets", len(state.Snippets)),
	)

	return &Result{
		Response:    response,
		ToolOutputs: state.ToolOutputs,
		Snippets:    state.Snippets,
	}, nil
}

// ClearThread drops a thread's history. A later request reusing the id
// starts a fresh conversation.
func (c *Controller) ClearThread(ctx context.Context, threadID string) error {
	unlock := c.store.Lock(threadID)
	defer unlock()

	return c.store.Delete(ctx, threadID)
}
