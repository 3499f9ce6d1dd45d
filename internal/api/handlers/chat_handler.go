package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/agent"
	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/retrieval"
	"github.com/review-agent/backend/pkg/logger"
)

type ChatHandler struct {
	controller *agent.Controller
	simple     *agent.SimpleRAG
}

type ChatRequest struct {
	Question  string `json:"question"`
	Mode      string `json:"mode"`
	ChunkType string `json:"chunk_type"`
	Vendor    string `json:"vendor"`
	TopK      int    `json:"top_k"`
	FetchK    int    `json:"fetch_k"`
	ThreadID  string `json:"thread_id"`
}

func NewChatHandler(controller *agent.Controller, simple *agent.SimpleRAG) *ChatHandler {
	return &ChatHandler{
		controller: controller,
		simple:     simple,
	}
}

// HandleChat answers a question in agent mode (tool loop with conversation
// memory) or simple mode (single retrieve-then-answer shot). A missing
// thread_id starts a new thread.
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var req ChatRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question is required",
		})
	}

	mode := req.Mode
	if mode == "" {
		mode = "agent"
	}
	if mode != "agent" && mode != "simple" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mode must be \"agent\" or \"simple\"",
		})
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.New().String()
	}

	agentReq := agent.Request{
		Question:  req.Question,
		ChunkType: req.ChunkType,
		Vendor:    req.Vendor,
		TopK:      req.TopK,
		FetchK:    req.FetchK,
		ThreadID:  threadID,
	}

	start := time.Now()

	var result *agent.Result
	var err error
	if mode == "simple" {
		result, err = h.simple.Answer(c.Context(), agentReq)
	} else {
		result, err = h.controller.Respond(c.Context(), agentReq)
	}
	if err != nil {
		metrics.ChatTotal.WithLabelValues(mode, "error").Inc()
		logger.Error("Chat turn failed",
			zap.String("thread_id", threadID),
			zap.String("mode", mode),
			zap.Error(err),
		)
		if errors.Is(err, retrieval.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process question",
		})
	}

	metrics.ChatDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.ChatTotal.WithLabelValues(mode, "success").Inc()

	return c.JSON(fiber.Map{
		"thread_id":    threadID,
		"response":     result.Response,
		"tool_outputs": result.ToolOutputs,
		"snippets":     result.Snippets,
	})
}

// ClearThread drops a conversation's history.
func (h *ChatHandler) ClearThread(c *fiber.Ctx) error {
	threadID := c.Params("thread_id")
	if threadID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "thread_id is required",
		})
	}

	if err := h.controller.ClearThread(c.Context(), threadID); err != nil {
		logger.Error("Failed to clear thread", zap.String("thread_id", threadID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to clear thread",
		})
	}

	return c.JSON(fiber.Map{
		"thread_id": threadID,
		"cleared":   true,
	})
}
