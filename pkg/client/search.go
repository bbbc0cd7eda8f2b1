package client

import "context"

// Summary carries the fields shared by every scenario result.
type Summary struct {
	DocNumber           string   `json:"doc_number"`
	Title               string   `json:"title"`
	Abstract            string   `json:"abstract"`
	Classification      string   `json:"classification"`
	PublicationDate     string   `json:"publication_date"`
	SimilarityScore     float64  `json:"similarity_score"`
	AllClaims           []string `json:"all_claims"`
	DetailedDescription string   `json:"detailed_description"`
}

// InvalidityRequest searches for prior art. In every request type a zero
// TopK is left out of the body and the server default of 20 applies.
type InvalidityRequest struct {
	QueryClaims    string   `json:"query_claims"`
	QueryDocNumber string   `json:"query_doc_number,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	TitleSearch    string   `json:"title_search,omitempty"`
	TargetDate     string   `json:"target_date,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
}

// InvalidityResult is one prior-art candidate.
type InvalidityResult struct {
	Summary
	MatchedClaims     []string `json:"matched_claims"`
	IndependentClaims []string `json:"independent_claims"`
	ClaimsCount       int      `json:"claims_count"`
}

// InfringementRequest searches for patents your claims may read on.
type InfringementRequest struct {
	MyClaims       string   `json:"my_claims"`
	MyDocNumber    string   `json:"my_doc_number,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	TitleSearch    string   `json:"title_search,omitempty"`
	DateFrom       string   `json:"date_from,omitempty"`
	DateTo         string   `json:"date_to,omitempty"`
	// MinSimilarity defaults to 0.5 on the server when nil.
	MinSimilarity *float64 `json:"min_similarity,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
}

// InfringementResult carries the risk level for one patent.
type InfringementResult struct {
	Summary
	RiskLevel           string   `json:"risk_level"`
	MatchedClaims       []string `json:"matched_claims"`
	OverlappingFeatures []string `json:"overlapping_features"`
}

// PatentabilityRequest assesses the novelty of an invention description.
type PatentabilityRequest struct {
	InventionDescription string   `json:"invention_description"`
	DraftClaims          string   `json:"draft_claims,omitempty"`
	Classification       string   `json:"classification,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	TitleSearch          string   `json:"title_search,omitempty"`
	TopK                 int      `json:"top_k,omitempty"`
}

// PatentabilityResult grades novelty against one patent.
type PatentabilityResult struct {
	Summary
	NoveltyAssessment string   `json:"novelty_assessment"`
	ClosestPriorArt   bool     `json:"closest_prior_art"`
	KeyDifferences    []string `json:"key_differences"`
	MatchedClaims     []string `json:"matched_claims"`
	TechnicalField    string   `json:"technical_field"`
}

// PatentIDRequest finds patents similar to a corpus patent.
type PatentIDRequest struct {
	DocNumber      string `json:"doc_number"`
	Classification string `json:"classification,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
}

// PatentIDResult is one patent similar to the source patent.
type PatentIDResult struct {
	Summary
	MatchedClaims []string `json:"matched_claims"`
}

// SearchResponse is the envelope every search endpoint returns.
type SearchResponse[T any] struct {
	Success      bool    `json:"success"`
	Total        int     `json:"total"`
	Results      []T     `json:"results"`
	Scenario     string  `json:"scenario"`
	SearchTimeMs float64 `json:"search_time_ms"`
	SourcePatent *Patent `json:"source_patent,omitempty"`
	// HistoryID is set when the server saved the search to the caller's history.
	HistoryID string `json:"-"`
}

// Invalidity searches for prior art against the given claims.
func (c *Client) Invalidity(ctx context.Context, req InvalidityRequest) (*SearchResponse[InvalidityResult], error) {
	return searchPost[InvalidityResult](ctx, c, "/api/search/invalidity", req)
}

// Infringement searches for patents at risk of being infringed.
func (c *Client) Infringement(ctx context.Context, req InfringementRequest) (*SearchResponse[InfringementResult], error) {
	return searchPost[InfringementResult](ctx, c, "/api/search/infringement", req)
}

// Patentability grades novelty of an invention against the corpus.
func (c *Client) Patentability(ctx context.Context, req PatentabilityRequest) (*SearchResponse[PatentabilityResult], error) {
	return searchPost[PatentabilityResult](ctx, c, "/api/search/patentability", req)
}

// ByPatentID searches with a corpus patent as the query. An unknown doc number
// is not an error: the response has Success false and no results.
func (c *Client) ByPatentID(ctx context.Context, req PatentIDRequest) (*SearchResponse[PatentIDResult], error) {
	return searchPost[PatentIDResult](ctx, c, "/api/search/by-patent-id", req)
}

func searchPost[T any](ctx context.Context, c *Client, path string, body interface{}) (*SearchResponse[T], error) {
	var out SearchResponse[T]
	resp, err := c.post(ctx, path, body, &out)
	if err != nil {
		return nil, err
	}
	out.HistoryID = resp.historyID
	return &out, nil
}
