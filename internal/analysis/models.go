package analysis

// SentimentSummary is the aggregated sentiment report over a batch of
// retrieved reviews.
type SentimentSummary struct {
	TotalReviews   int      `json:"total_reviews"`
	MeanRating     float64  `json:"mean_rating"`
	PositiveShare  float64  `json:"positive_share"`
	NegativeShare  float64  `json:"negative_share"`
	PositiveThemes []string `json:"positive_themes"`
	NegativeThemes []string `json:"negative_themes"`
}

// Aspect is one product or service dimension customers mention. The
// sentiment score runs -1.0 (uniformly negative) to 1.0 (uniformly
// positive).
type Aspect struct {
	Name             string   `json:"name"`
	Frequency        int      `json:"frequency"`
	SentimentScore   float64  `json:"sentiment_score"`
	PositiveExamples []string `json:"positive_examples"`
	NeutralExamples  []string `json:"neutral_examples"`
	NegativeExamples []string `json:"negative_examples"`
}

type AspectAnalysis struct {
	TotalAspects int      `json:"total_aspects"`
	Aspects      []Aspect `json:"aspects"`
}

// JTBDInsight is a jobs-to-be-done reading of the reviews: what customers
// were trying to accomplish and where the product fell short.
type JTBDInsight struct {
	Job             string   `json:"job"`
	Situation       string   `json:"situation"`
	Motivation      string   `json:"motivation"`
	ExpectedOutcome string   `json:"expected_outcome"`
	Frustrations    []string `json:"frustrations"`
	Quotes          []string `json:"quotes"`
	TotalReviews    int      `json:"total_reviews"`
}
