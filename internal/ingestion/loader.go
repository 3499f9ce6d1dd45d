package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/review-agent/backend/internal/metrics"
	"github.com/review-agent/backend/internal/storage/models"
	"github.com/review-agent/backend/pkg/logger"
)

// LoadReviews reads every vendor CSV in dir. The vendor tag is the file name
// without extension; review identifiers are `{vendor}_{rowIndex}` where the
// row index runs across all files in load order.
func LoadReviews(dir string) ([]models.ReviewRecord, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list review files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no review files found in %s", dir)
	}

	var records []models.ReviewRecord
	rowIndex := 0

	for _, file := range files {
		vendor := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		rows, skipped, err := readVendorFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if skipped > 0 {
			metrics.IngestFailures.WithLabelValues("parse").Add(float64(skipped))
		}

		for _, row := range rows {
			row.Vendor = vendor
			row.ReviewID = fmt.Sprintf("%s_%d", vendor, rowIndex)
			records = append(records, row)
			rowIndex++
		}

		logger.Info("Vendor reviews loaded",
			zap.String("vendor", vendor),
			zap.Int("rows", len(rows)),
			zap.Int("skipped", skipped),
		)
	}

	return records, nil
}

// readVendorFile parses one vendor CSV. Malformed rows are skipped with a
// warning and counted so a bad row mid-file never silently truncates the
// rest; only io.EOF ends the read loop.
func readVendorFile(path string) ([]models.ReviewRecord, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{"name", "country", "date", "review_score", "review_header", "review_body"} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		idx := cols[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []models.ReviewRecord
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			logger.Warn("Skipping malformed review row",
				zap.String("file", path),
				zap.Error(err),
			)
			continue
		}

		score, _ := strconv.Atoi(field(row, "review_score"))

		records = append(records, models.ReviewRecord{
			Name:    field(row, "name"),
			Country: field(row, "country"),
			Date:    field(row, "date"),
			Score:   score,
			Header:  field(row, "review_header"),
			Body:    field(row, "review_body"),
		})
	}

	return records, skipped, nil
}
