package ingestion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/pkg/logger"
)

const (
	ChunkTypeReview   = "review"
	ChunkTypeSentence = "sentence"

	// Bodies with fewer words are indexed at review level only.
	minBodyWords = 5
	// Sentences at or below this length after trimming are dropped.
	minSentenceLen = 3
)

// Document is one indexable unit derived from a review, before embedding.
type Document struct {
	ID           string
	Content      string
	ChunkType    string
	ReviewID     string
	ParentID     string
	SentenceIdx  int
	ReviewHeader string
	Name         string
	Country      string
	Date         string
	Score        int
	Vendor       string
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// BuildDocuments converts review records into review-level documents plus
// sentence-level documents for non-trivial bodies. A review whose sentence
// segmentation fails loses only its sentence documents; the review-level
// document is always emitted. The failure count is returned for operator
// visibility.
func BuildDocuments(records []models.ReviewRecord) ([]Document, int) {
	docs := make([]Document, 0, len(records))
	failures := 0

	for _, record := range records {
		header := strings.TrimSpace(record.Header)
		body := cleanBody(record.Body)

		content := header
		if body != "" {
			content = header + "\n\n" + body
		}

		docs = append(docs, Document{
			ID:           record.ReviewID,
			Content:      content,
			ChunkType:    ChunkTypeReview,
			ReviewID:     record.ReviewID,
			Name:         record.Name,
			Country:      record.Country,
			Date:         record.Date,
			Score:        record.Score,
			Vendor:       record.Vendor,
			ReviewHeader: header,
		})

		if len(strings.Fields(body)) <= minBodyWords {
			continue
		}

		sentences, err := splitSentences(body)
		if err != nil {
			failures++
			logger.Warn("Sentence segmentation failed, skipping sentence chunks",
				zap.String("review_id", record.ReviewID),
				zap.Error(err),
			)
			continue
		}

		for i, sentence := range sentences {
			sentence = strings.TrimSpace(sentence)
			if len(sentence) <= minSentenceLen {
				continue
			}

			docs = append(docs, Document{
				ID:           fmt.Sprintf("%s_s%d", record.ReviewID, i),
				Content:      sentence,
				ChunkType:    ChunkTypeSentence,
				ReviewID:     record.ReviewID,
				ParentID:     record.ReviewID,
				SentenceIdx:  i,
				ReviewHeader: header,
				Name:         record.Name,
				Country:      record.Country,
				Date:         record.Date,
				Score:        record.Score,
				Vendor:       record.Vendor,
			})
		}
	}

	return docs, failures
}

func splitSentences(text string) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	sentences := doc.Sentences()
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, s.Text)
	}
	return out, nil
}

// cleanBody strips markup scraped review bodies sometimes carry and
// collapses runs of whitespace.
func cleanBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	if strings.Contains(body, "<") && strings.Contains(body, ">") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err == nil {
			doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
				s.Remove()
			})
			body = doc.Text()
		}
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(body, " "))
}
