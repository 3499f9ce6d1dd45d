package agent

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/review-agent/backend/internal/storage/models"
)

// State is the full serialized conversation state for one thread: the chat
// transcript plus two append-only logs. Snippets accumulates every snippet
// any retrieval call returned; ToolOutputs accumulates every analysis result
// in call order. Both survive across turns through checkpointing.
type State struct {
	Messages    []openai.ChatCompletionMessage `json:"messages"`
	ToolOutputs []models.ToolOutput            `json:"tool_outputs"`
	Snippets    []models.Snippet               `json:"snippets"`
}

func newState() *State {
	return &State{
		Messages:    []openai.ChatCompletionMessage{},
		ToolOutputs: []models.ToolOutput{},
		Snippets:    []models.Snippet{},
	}
}
