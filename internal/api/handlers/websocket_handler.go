package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/agent"
	"github.com/review-agent/backend/pkg/logger"
)

type WebSocketHandler struct {
	controller *agent.Controller
}

func NewWebSocketHandler(controller *agent.Controller) *WebSocketHandler {
	return &WebSocketHandler{
		controller: controller,
	}
}

// HandleConnection serves one chat websocket. Incoming messages of type
// "question" run a full agent turn; the answer streams back word by word
// followed by a "complete" payload carrying the structured logs.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Question  string `json:"question"`
			ChunkType string `json:"chunk_type"`
			Vendor    string `json:"vendor"`
			ThreadID  string `json:"thread_id"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read failed", zap.Error(err))
			break
		}

		if msg.Type != "question" || msg.Question == "" {
			continue
		}

		threadID := msg.ThreadID
		if threadID == "" {
			threadID = uuid.New().String()
		}

		err = h.streamResponse(c, agent.Request{
			Question:  msg.Question,
			ChunkType: msg.ChunkType,
			Vendor:    msg.Vendor,
			ThreadID:  threadID,
		})
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process question")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, req agent.Request) error {
	h.sendChunk(c, "status", "Analyzing reviews...")

	result, err := h.controller.Respond(context.Background(), req)
	if err != nil {
		return err
	}

	words := splitIntoWords(result.Response)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return c.WriteJSON(map[string]interface{}{
		"type":         "complete",
		"thread_id":    req.ThreadID,
		"tool_outputs": result.ToolOutputs,
		"snippets":     result.Snippets,
	})
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	current := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			current += string(char)
		}
	}

	if current != "" {
		words = append(words, current)
	}

	return words
}
