package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/ingestion"
	"github.com/review-agent/backend/pkg/logger"
)

type IngestHandler struct {
	processor  *ingestion.Processor
	reviewsDir string
}

func NewIngestHandler(processor *ingestion.Processor, reviewsDir string) *IngestHandler {
	return &IngestHandler{
		processor:  processor,
		reviewsDir: reviewsDir,
	}
}

// TriggerIngest reloads all vendor CSVs and rebuilds the index. The previous
// review rows are replaced wholesale. This runs synchronously; callers should
// expect a long request on large datasets.
func (h *IngestHandler) TriggerIngest(c *fiber.Ctx) error {
	records, err := ingestion.LoadReviews(h.reviewsDir)
	if err != nil {
		logger.Error("Failed to load reviews", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load reviews",
		})
	}

	if err := h.processor.IngestAll(c.Context(), records); err != nil {
		logger.Error("Failed to ingest reviews", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to ingest reviews",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Reviews ingested successfully",
		"count":   len(records),
	})
}
