// Package patent holds the patent record model and the in-memory corpus store
// that every search scenario reads from. A corpus is immutable once loaded:
// record positions are stable for its lifetime and are the join key to the
// vector index.
package patent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one cleaned patent document.
type Record struct {
	DocNumber           string   `json:"doc_number"`
	Title               string   `json:"title"`
	Abstract            string   `json:"abstract"`
	DetailedDescription string   `json:"detailed_description"`
	Claims              []string `json:"claims"`
	Classification      string   `json:"classification"`
	// PublicationDate is YYYY-MM-DD or empty.
	PublicationDate string `json:"publication_date"`
}

type recordJSON struct {
	DocNumber           string          `json:"doc_number"`
	Title               string          `json:"title"`
	Abstract            string          `json:"abstract"`
	DetailedDescription json.RawMessage `json:"detailed_description"`
	Claims              []string        `json:"claims"`
	Classification      string          `json:"classification"`
	PublicationDate     string          `json:"publication_date"`
}

// UnmarshalJSON accepts detailed_description as either a string or a list of
// paragraphs; paragraphs are joined with a newline.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	desc, err := decodeDescription(raw.DetailedDescription)
	if err != nil {
		return fmt.Errorf("detailed_description: %w", err)
	}
	*r = Record{
		DocNumber:           raw.DocNumber,
		Title:               raw.Title,
		Abstract:            raw.Abstract,
		DetailedDescription: desc,
		Claims:              raw.Claims,
		Classification:      raw.Classification,
		PublicationDate:     raw.PublicationDate,
	}
	if r.Claims == nil {
		r.Claims = []string{}
	}
	return nil
}

func decodeDescription(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '[' {
		var parts []string
		if err := json.Unmarshal(raw, &parts); err != nil {
			return "", err
		}
		return strings.Join(parts, "\n"), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

// FullText is title, abstract and every claim joined by single spaces. It is
// the haystack for keyword filtering and feature overlap.
func (r *Record) FullText() string {
	parts := make([]string, 0, len(r.Claims)+2)
	parts = append(parts, r.Title, r.Abstract)
	parts = append(parts, r.Claims...)
	return strings.Join(parts, " ")
}

// LeadingClaims returns at most n claims from the front of the claim list.
func (r *Record) LeadingClaims(n int) []string {
	if len(r.Claims) <= n {
		return r.Claims
	}
	return r.Claims[:n]
}
