package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/llm"
	"github.com/review-agent/backend/internal/storage/sqlite"
	"github.com/review-agent/backend/pkg/logger"
)

type StatsHandler struct {
	store      *sqlite.Client
	accountant *llm.Accountant
}

func NewStatsHandler(store *sqlite.Client, accountant *llm.Accountant) *StatsHandler {
	return &StatsHandler{
		store:      store,
		accountant: accountant,
	}
}

// GetStats reports per-vendor review counts, largest vendor first.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.store.GetReviewStats()
	if err != nil {
		logger.Error("Failed to get review stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get review stats",
		})
	}

	total := 0
	for _, s := range stats {
		total += s.Count
	}

	return c.JSON(fiber.Map{
		"total_reviews": total,
		"vendors":       stats,
	})
}

// GetUsage reports cumulative LLM token consumption against the configured
// budget.
func (h *StatsHandler) GetUsage(c *fiber.Ctx) error {
	snapshot := h.accountant.Snapshot()

	return c.JSON(fiber.Map{
		"prompt_tokens":     snapshot.PromptTokens,
		"completion_tokens": snapshot.CompletionTokens,
		"total_tokens":      snapshot.TotalTokens,
		"budget":            snapshot.Budget,
		"exceeded":          h.accountant.Exceeded(),
	})
}
