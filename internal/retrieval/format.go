package retrieval

import (
	"fmt"
	"strings"

	"github.com/review-agent/backend/internal/storage/models"
)

// NoResultsMessage is returned instead of an empty context block so the
// model has an explicit signal that retrieval found nothing.
const NoResultsMessage = "No relevant reviews found."

// FormatSnippets renders retrieved snippets into the bracketed context block
// fed to the model, one snippet per paragraph.
func FormatSnippets(snippets []models.Snippet) string {
	if len(snippets) == 0 {
		return NoResultsMessage
	}

	parts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		date := s.Date
		if date == "" {
			date = "Unknown date"
		}

		score := "N/A"
		if s.Rating > 0 {
			score = fmt.Sprintf("%d", s.Rating)
		}

		parts = append(parts, fmt.Sprintf("[%s | %s | Score: %s] %s",
			s.Source, date, score, strings.TrimSpace(s.Text)))
	}

	return strings.Join(parts, "\n\n")
}
