package search

import (
	"context"
	"time"
)

// Response is the envelope returned to API and CLI callers.
type Response[T any] struct {
	Success      bool          `json:"success"`
	Total        int           `json:"total"`
	Results      []T           `json:"results"`
	Scenario     Scenario      `json:"scenario"`
	SearchTimeMs float64       `json:"search_time_ms"`
	SourcePatent *SourcePatent `json:"source_patent,omitempty"`
}

// NewResponse wraps results. A nil slice is reported as empty.
func NewResponse[T any](scenario Scenario, results []T, elapsed time.Duration) Response[T] {
	if results == nil {
		results = []T{}
	}
	return Response[T]{
		Success:      true,
		Total:        len(results),
		Results:      results,
		Scenario:     scenario,
		SearchTimeMs: Milliseconds(elapsed),
	}
}

// Milliseconds converts d to fractional milliseconds rounded to 0.01.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()/10) / 100
}

// HistoryEntry is what gets persisted for a user's past search.
type HistoryEntry struct {
	Scenario     Scenario  `json:"scenario"`
	QueryData    any       `json:"query_data"`
	ResultsData  any       `json:"results_data"`
	ResultCount  int       `json:"result_count"`
	SearchTimeMs float64   `json:"search_time_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewHistoryEntry records a finished search. query is the request as the
// caller sent it.
func NewHistoryEntry[T any](query any, resp Response[T]) HistoryEntry {
	return HistoryEntry{
		Scenario:     resp.Scenario,
		QueryData:    query,
		ResultsData:  resp.Results,
		ResultCount:  resp.Total,
		SearchTimeMs: resp.SearchTimeMs,
		CreatedAt:    time.Now().UTC(),
	}
}

// HistoryRecorder persists history entries and returns the new entry id.
// Storage lives outside this module.
type HistoryRecorder interface {
	Save(ctx context.Context, userID string, entry HistoryEntry) (string, error)
}
