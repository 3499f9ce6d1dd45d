package models

// ReviewRecord is one raw customer review row as ingested from a vendor
// table. Records are immutable once stored; re-ingestion replaces them
// wholesale.
type ReviewRecord struct {
	ReviewID string `json:"review_id"`
	Name     string `json:"name"`
	Country  string `json:"country"`
	Date     string `json:"date"`
	Score    int    `json:"review_score"`
	Header   string `json:"review_header"`
	Body     string `json:"review_body"`
	Vendor   string `json:"vendor"`
}

// Snippet is a single retrieved unit of review text plus display metadata,
// one per distinct source review.
type Snippet struct {
	Text         string `json:"text"`
	Rating       int    `json:"rating"`
	Date         string `json:"date"`
	Source       string `json:"source"`
	Vendor       string `json:"vendor"`
	ReviewHeader string `json:"review_header"`
}

// ToolOutput is one structured analysis result tagged with the tool that
// produced it. Outputs accumulate append-only across a conversation, so
// repeated calls to the same tool are all preserved in call order.
type ToolOutput struct {
	Name   string `json:"name"`
	Output any    `json:"output"`
}

// VendorCount is one row of the review statistics query, ordered by
// descending count.
type VendorCount struct {
	Vendor string `json:"vendor"`
	Count  int    `json:"count"`
}
