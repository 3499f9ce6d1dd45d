package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/review-agent/backend/internal/storage/models"
)

func TestFormatSnippetsEmpty(t *testing.T) {
	assert.Equal(t, NoResultsMessage, FormatSnippets(nil))
	assert.Equal(t, NoResultsMessage, FormatSnippets([]models.Snippet{}))
}

func TestFormatSnippetsRendering(t *testing.T) {
	snippets := []models.Snippet{
		{Text: "  Great uptime  ", Rating: 5, Date: "2024-01-01", Source: "Alice"},
		{Text: "Slow support", Rating: 0, Date: "", Source: ""},
	}

	got := FormatSnippets(snippets)
	want := "[Alice | 2024-01-01 | Score: 5] Great uptime\n\n[ | Unknown date | Score: N/A] Slow support"
	assert.Equal(t, want, got)
}

func TestFormatSnippetsDeterministic(t *testing.T) {
	snippets := []models.Snippet{
		{Text: "a", Rating: 3, Date: "d", Source: "s"},
		{Text: "b", Rating: 1, Date: "d2", Source: "s2"},
	}

	assert.Equal(t, FormatSnippets(snippets), FormatSnippets(snippets))
}
