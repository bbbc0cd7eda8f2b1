package search

import (
	"math"
	"strings"
	"time"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Scenario names a search workflow.
type Scenario string

const (
	ScenarioInvalidity    Scenario = "invalidity"
	ScenarioInfringement  Scenario = "infringement"
	ScenarioPatentability Scenario = "patentability"
	ScenarioPatentID      Scenario = "patent_id"
)

const (
	DefaultTopK          = 20
	MaxTopK              = 100
	DefaultMinSimilarity = 0.5

	summaryClaimsCap      = 10
	summaryDescriptionCap = 500
	sourceClaimsCap       = 10
	patentIDQueryClaims   = 5

	dateLayout = "2006-01-02"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// InvalidityRequest looks for prior art against existing claims.
type InvalidityRequest struct {
	QueryClaims    string   `json:"query_claims"`
	QueryDocNumber string   `json:"query_doc_number,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	TitleSearch    string   `json:"title_search,omitempty"`
	TargetDate     string   `json:"target_date,omitempty"`
	TopK           *int     `json:"top_k,omitempty"`
}

func (r *InvalidityRequest) normalize() error {
	if strings.TrimSpace(r.QueryClaims) == "" {
		return apperrors.InvalidParam("query_claims is required")
	}
	if err := checkDate("target_date", r.TargetDate); err != nil {
		return err
	}
	return normalizeTopK(&r.TopK)
}

// InfringementRequest looks for patents that may be infringed by the caller's claims.
type InfringementRequest struct {
	MyClaims       string   `json:"my_claims"`
	MyDocNumber    string   `json:"my_doc_number,omitempty"`
	Classification string   `json:"classification,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	TitleSearch    string   `json:"title_search,omitempty"`
	DateFrom       string   `json:"date_from,omitempty"`
	DateTo         string   `json:"date_to,omitempty"`
	MinSimilarity  *float64 `json:"min_similarity,omitempty"`
	TopK           *int     `json:"top_k,omitempty"`
}

func (r *InfringementRequest) normalize() error {
	if strings.TrimSpace(r.MyClaims) == "" {
		return apperrors.InvalidParam("my_claims is required")
	}
	if err := checkDate("date_from", r.DateFrom); err != nil {
		return err
	}
	if err := checkDate("date_to", r.DateTo); err != nil {
		return err
	}
	if r.MinSimilarity == nil {
		v := DefaultMinSimilarity
		r.MinSimilarity = &v
	} else if s := *r.MinSimilarity; math.IsNaN(s) || s < 0 || s > 1 {
		return apperrors.InvalidParam("min_similarity must be between 0 and 1").
			WithDetail(formatFloat(s))
	}
	return normalizeTopK(&r.TopK)
}

// PatentabilityRequest checks an invention disclosure for novelty.
type PatentabilityRequest struct {
	InventionDescription string   `json:"invention_description"`
	DraftClaims          string   `json:"draft_claims,omitempty"`
	Classification       string   `json:"classification,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	TitleSearch          string   `json:"title_search,omitempty"`
	TopK                 *int     `json:"top_k,omitempty"`
}

func (r *PatentabilityRequest) normalize() error {
	if strings.TrimSpace(r.InventionDescription) == "" {
		return apperrors.InvalidParam("invention_description is required")
	}
	return normalizeTopK(&r.TopK)
}

// query joins the description with the draft claims when present.
func (r *PatentabilityRequest) query() string {
	if r.DraftClaims == "" {
		return r.InventionDescription
	}
	return r.InventionDescription + " " + r.DraftClaims
}

// PatentIDRequest finds patents similar to one already in the corpus.
type PatentIDRequest struct {
	DocNumber      string `json:"doc_number"`
	Classification string `json:"classification,omitempty"`
	TopK           *int   `json:"top_k,omitempty"`
}

func (r *PatentIDRequest) normalize() error {
	if strings.TrimSpace(r.DocNumber) == "" {
		return apperrors.InvalidParam("doc_number is required")
	}
	return normalizeTopK(&r.TopK)
}

// normalizeTopK fills in DefaultTopK when k is unset. An explicit value,
// zero included, must lie in [1, MaxTopK].
func normalizeTopK(k **int) error {
	if *k == nil {
		v := DefaultTopK
		*k = &v
		return nil
	}
	if n := **k; n < 1 || n > MaxTopK {
		return apperrors.InvalidParam("top_k must be between 1 and 100").
			WithDetail(formatInt(n))
	}
	return nil
}

func checkDate(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return apperrors.InvalidParam(field + " must be formatted YYYY-MM-DD").WithDetail(value)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Summary carries the fields every scenario result shares.
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

func summarize(r *patent.Record, score float64) Summary {
	return Summary{
		DocNumber:           r.DocNumber,
		Title:               r.Title,
		Abstract:            r.Abstract,
		Classification:      r.Classification,
		PublicationDate:     r.PublicationDate,
		SimilarityScore:     RoundScore(score),
		AllClaims:           nonNil(r.LeadingClaims(summaryClaimsCap)),
		DetailedDescription: truncateRunes(r.DetailedDescription, summaryDescriptionCap),
	}
}

// RoundScore rounds a similarity to four decimal places.
func RoundScore(s float64) float64 {
	return math.Round(s*1e4) / 1e4
}

// InvalidityResult is one prior-art candidate with the claims that match the
// query and the candidate's independent claims.
type InvalidityResult struct {
	Summary
	MatchedClaims     []string `json:"matched_claims"`
	IndependentClaims []string `json:"independent_claims"`
	ClaimsCount       int      `json:"claims_count"`
}

// InfringementResult is one patent the caller's claims may infringe, graded
// by risk.
type InfringementResult struct {
	Summary
	RiskLevel           RiskLevel `json:"risk_level"`
	MatchedClaims       []string  `json:"matched_claims"`
	OverlappingFeatures []string  `json:"overlapping_features"`
}

// PatentabilityResult is one piece of prior art graded for novelty. Only the
// top result is marked as the closest prior art.
type PatentabilityResult struct {
	Summary
	NoveltyAssessment Novelty  `json:"novelty_assessment"`
	ClosestPriorArt   bool     `json:"closest_prior_art"`
	KeyDifferences    []string `json:"key_differences"`
	MatchedClaims     []string `json:"matched_claims"`
	TechnicalField    string   `json:"technical_field"`
}

// PatentIDResult is a patent similar to the source of a PatentID search.
type PatentIDResult struct {
	Summary
	MatchedClaims []string `json:"matched_claims"`
}

// SourcePatent describes the record a PatentID search started from.
type SourcePatent struct {
	DocNumber       string   `json:"doc_number"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Classification  string   `json:"classification"`
	PublicationDate string   `json:"publication_date"`
	Claims          []string `json:"claims"`
}

// NewSourcePatent returns nil for a nil record.
func NewSourcePatent(r *patent.Record) *SourcePatent {
	if r == nil {
		return nil
	}
	return &SourcePatent{
		DocNumber:       r.DocNumber,
		Title:           r.Title,
		Abstract:        r.Abstract,
		Classification:  r.Classification,
		PublicationDate: r.PublicationDate,
		Claims:          nonNil(r.LeadingClaims(sourceClaimsCap)),
	}
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
