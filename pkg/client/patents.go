package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Patent is a corpus record with at most ten claims.
type Patent struct {
	DocNumber       string   `json:"doc_number"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Classification  string   `json:"classification"`
	PublicationDate string   `json:"publication_date"`
	Claims          []string `json:"claims"`
}

// DateRange bounds are nil for an empty corpus.
type DateRange struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

// ClassCount is one classification bucket.
type ClassCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// ClassDistribution lists classification buckets most common first. The
// server sends it as an object from code to count.
type ClassDistribution []ClassCount

func (d *ClassDistribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if tok != json.Delim('{') {
		return fmt.Errorf("classification_distribution: expected object, got %v", tok)
	}
	out := ClassDistribution{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		c := ClassCount{Code: tok.(string)}
		if err := dec.Decode(&c.Count); err != nil {
			return err
		}
		out = append(out, c)
	}
	*d = out
	return nil
}

// Stats summarizes the loaded corpus.
type Stats struct {
	TotalPatents               int               `json:"total_patents"`
	DateRange                  DateRange         `json:"date_range"`
	ClassificationDistribution ClassDistribution `json:"classification_distribution"`
}

// Health is the liveness report.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// GetPatent looks up one patent. Doc numbers match with or without the
// country prefix.
func (c *Client) GetPatent(ctx context.Context, docNumber string) (*Patent, error) {
	var p Patent
	if err := c.get(ctx, "/api/patent/"+url.PathEscape(docNumber), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Stats fetches corpus statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.get(ctx, "/api/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/api/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}
