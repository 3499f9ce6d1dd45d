package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadReviews(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "ovh.csv",
		"name,country,date,review_score,review_header,review_body\n"+
			"Alice,FR,2024-01-01,5,Great,Loved it\n"+
			"Bob,DE,2024-01-02,3,Okay,It works\n")

	records, err := LoadReviews(dir)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ovh", records[0].Vendor)
	assert.Equal(t, "ovh_0", records[0].ReviewID)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, 5, records[0].Score)
	assert.Equal(t, "ovh_1", records[1].ReviewID)
}

func TestLoadReviewsSkipsMalformedRow(t *testing.T) {
	// The bare quote in row two is a CSV parse error. Rows after it must
	// still load instead of the file silently truncating.
	dir := t.TempDir()
	writeCSV(t, dir, "ovh.csv",
		"name,country,date,review_score,review_header,review_body\n"+
			"Alice,FR,2024-01-01,5,Great,Loved it\n"+
			"Bob,DE,2024-01-02,3,He said \"fine\" twice,Broken row\n"+
			"Cara,US,2024-01-03,4,Fine,Works well\n")

	records, err := LoadReviews(dir)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].Name)
	assert.Equal(t, "Cara", records[1].Name)
	assert.Equal(t, "ovh_1", records[1].ReviewID)
}

func TestLoadReviewsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "aws.csv", "name,country\nAlice,FR\n")

	_, err := LoadReviews(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestLoadReviewsEmptyDir(t *testing.T) {
	_, err := LoadReviews(t.TempDir())
	require.Error(t, err)
}
