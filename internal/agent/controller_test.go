package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/review-agent/backend/internal/retrieval"
	"github.com/review-agent/backend/internal/storage/models"
)

type scriptedModel struct {
	steps []openai.ChatCompletionMessage
	calls int
	err   error
}

func (m *scriptedModel) Chat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (openai.ChatCompletionMessage, error) {
	if m.err != nil {
		return openai.ChatCompletionMessage{}, m.err
	}
	if m.calls >= len(m.steps) {
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleAssistant,
			Content: "done",
		}, nil
	}
	step := m.steps[m.calls]
	m.calls++
	return step, nil
}

type fakeRetriever struct {
	snippets   []models.Snippet
	err        error
	calls      int
	lastTopK   int
	lastFetchK int
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query, chunkType, vendor string, topK, fetchK int) ([]models.Snippet, error) {
	r.calls++
	r.lastTopK = topK
	r.lastFetchK = fetchK
	return r.snippets, r.err
}

type fakeAnalyzer struct {
	output any
}

func (a *fakeAnalyzer) AnalyzeSentiment(ctx context.Context, reviews []json.RawMessage, question string) any {
	return a.output
}
func (a *fakeAnalyzer) ExtractAspects(ctx context.Context, reviews []json.RawMessage, question string) any {
	return a.output
}
func (a *fakeAnalyzer) AnalyzeJTBD(ctx context.Context, reviews []json.RawMessage, question string) any {
	return a.output
}

type memoryCheckpointer struct {
	states map[string][]byte
}

func newMemoryCheckpointer() *memoryCheckpointer {
	return &memoryCheckpointer{states: make(map[string][]byte)}
}

func (m *memoryCheckpointer) LoadCheckpoint(ctx context.Context, threadID string) ([]byte, bool, error) {
	data, ok := m.states[threadID]
	return data, ok, nil
}

func (m *memoryCheckpointer) SaveCheckpoint(ctx context.Context, threadID string, state []byte) error {
	m.states[threadID] = state
	return nil
}

func (m *memoryCheckpointer) DeleteCheckpoint(ctx context.Context, threadID string) error {
	delete(m.states, threadID)
	return nil
}

func assistantText(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content,
	}
}

func assistantToolCall(name, arguments string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleAssistant,
		ToolCalls: []openai.ToolCall{
			{
				ID:   "call_1",
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			},
		},
	}
}

func newTestController(model ChatModel, retriever Retriever, analyzer Analyzer) (*Controller, *memoryCheckpointer) {
	backend := newMemoryCheckpointer()
	store := NewCheckpointStore(backend)
	toolbox := NewToolbox(retriever, analyzer)
	return NewController(model, toolbox, store, nil, 0), backend
}

func TestRespondRetrieveThenAnswer(t *testing.T) {
	model := &scriptedModel{
		steps: []openai.ChatCompletionMessage{
			assistantToolCall("retrieve_reviews", `{"question": "support quality"}`),
			assistantText("Support is well regarded."),
		},
	}
	retriever := &fakeRetriever{
		snippets: []models.Snippet{
			{Text: "Support replied in minutes", Rating: 5, Source: "Alice"},
		},
	}

	controller, _ := newTestController(model, retriever, &fakeAnalyzer{})

	result, err := controller.Respond(context.Background(), Request{
		Question: "How is the support?",
		ThreadID: "t1",
	})

	require.NoError(t, err)
	assert.Equal(t, "Support is well regarded.", result.Response)
	assert.Equal(t, 2, model.calls)
	assert.Equal(t, 1, retriever.calls)

	// Retrieval feeds the snippet log, never the tool output log.
	require.Len(t, result.Snippets, 1)
	assert.Empty(t, result.ToolOutputs)
}

func TestRespondAnalysisToolAppendsOutput(t *testing.T) {
	model := &scriptedModel{
		steps: []openai.ChatCompletionMessage{
			assistantToolCall("sentiment_analysis", `{"reviews": ["great", "terrible"]}`),
			assistantText("Sentiment is split."),
		},
	}
	analyzer := &fakeAnalyzer{output: map[string]any{"total_reviews": 2}}

	controller, _ := newTestController(model, &fakeRetriever{}, analyzer)

	result, err := controller.Respond(context.Background(), Request{
		Question: "What is the sentiment?",
		ThreadID: "t1",
	})

	require.NoError(t, err)
	require.Len(t, result.ToolOutputs, 1)
	assert.Equal(t, "sentiment_analysis", result.ToolOutputs[0].Name)
	assert.Empty(t, result.Snippets)
}

func TestRespondUnknownTool(t *testing.T) {
	model := &scriptedModel{
		steps: []openai.ChatCompletionMessage{
			assistantToolCall("delete_everything", `{}`),
			assistantText("I cannot do that."),
		},
	}

	controller, backend := newTestController(model, &fakeRetriever{}, &fakeAnalyzer{})

	result, err := controller.Respond(context.Background(), Request{
		Question: "Wipe the data",
		ThreadID: "t1",
	})

	require.NoError(t, err)
	assert.Equal(t, "I cannot do that.", result.Response)

	var state State
	require.NoError(t, json.Unmarshal(backend.states["t1"], &state))

	var toolMsg *openai.ChatCompletionMessage
	for i := range state.Messages {
		if state.Messages[i].Role == openai.ChatMessageRoleTool {
			toolMsg = &state.Messages[i]
		}
	}
	require.NotNil(t, toolMsg)
	assert.Equal(t, "Error: Unknown tool 'delete_everything'", toolMsg.Content)
}

func TestRespondRoundCap(t *testing.T) {
	// The model asks for retrieval forever; the loop must terminate.
	steps := make([]openai.ChatCompletionMessage, 20)
	for i := range steps {
		steps[i] = assistantToolCall("retrieve_reviews", `{"question": "more"}`)
	}
	model := &scriptedModel{steps: steps}

	controller, _ := newTestController(model, &fakeRetriever{}, &fakeAnalyzer{})

	result, err := controller.Respond(context.Background(), Request{
		Question: "Loop forever",
		ThreadID: "t1",
	})

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxRounds, model.calls)
	assert.Contains(t, result.Response, "could not complete")
}

func TestRespondRejectsInvalidFetchK(t *testing.T) {
	model := &scriptedModel{steps: []openai.ChatCompletionMessage{assistantText("never reached")}}
	controller, _ := newTestController(model, &fakeRetriever{}, &fakeAnalyzer{})

	_, err := controller.Respond(context.Background(), Request{
		Question: "How is support?",
		ThreadID: "t1",
		TopK:     10,
		FetchK:   5,
	})

	require.ErrorIs(t, err, retrieval.ErrValidation)
	assert.Equal(t, 0, model.calls)
}

func TestRespondReasoningFailureTerminates(t *testing.T) {
	model := &scriptedModel{err: errors.New("model unavailable")}

	controller, _ := newTestController(model, &fakeRetriever{}, &fakeAnalyzer{})

	result, err := controller.Respond(context.Background(), Request{
		Question: "Anything",
		ThreadID: "t1",
	})

	require.NoError(t, err)
	assert.Contains(t, result.Response, "model unavailable")
}

func TestRespondStatePersistsAcrossTurns(t *testing.T) {
	model := &scriptedModel{
		steps: []openai.ChatCompletionMessage{
			assistantText("First answer."),
			assistantText("Second answer."),
		},
	}

	controller, backend := newTestController(model, &fakeRetriever{}, &fakeAnalyzer{})

	_, err := controller.Respond(context.Background(), Request{Question: "One", ThreadID: "t1"})
	require.NoError(t, err)
	_, err = controller.Respond(context.Background(), Request{Question: "Two", ThreadID: "t1"})
	require.NoError(t, err)

	var state State
	require.NoError(t, json.Unmarshal(backend.states["t1"], &state))

	// system + (user, assistant) x 2
	require.Len(t, state.Messages, 5)
	assert.Equal(t, openai.ChatMessageRoleSystem, state.Messages[0].Role)
	assert.Equal(t, "Two", state.Messages[3].Content)
}

func TestClearThread(t *testing.T) {
	model := &scriptedModel{steps: []openai.ChatCompletionMessage{assistantText("hi")}}
	controller, backend := newTestController(model, &fakeRetriever{}, &fakeAnalyzer{})

	_, err := controller.Respond(context.Background(), Request{Question: "One", ThreadID: "t1"})
	require.NoError(t, err)
	require.Contains(t, backend.states, "t1")

	require.NoError(t, controller.ClearThread(context.Background(), "t1"))
	assert.NotContains(t, backend.states, "t1")
}
