package patent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

const (
	statsTopClassifications = 10
	statsClassPrefixLen     = 4
	statsOtherClass         = "OTHER"
)

// DateRange is the earliest and latest non-empty publication date. Both are
// nil when no record carries a date.
type DateRange struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

// ClassCount is one bucket of the classification distribution.
type ClassCount struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// ClassDistribution is a ranked list of classification buckets. It encodes as
// a JSON object from code to count with keys in rank order.
type ClassDistribution []ClassCount

func (d ClassDistribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Code)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", c.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object form back, keeping key order.
func (d *ClassDistribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return err
	} else if tok != json.Delim('{') {
		return fmt.Errorf("classification distribution: expected object, got %v", tok)
	}
	out := ClassDistribution{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		code, _ := tok.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("classification distribution %q: %w", code, err)
		}
		out = append(out, ClassCount{Code: code, Count: n})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

// Stats summarizes a corpus.
type Stats struct {
	TotalPatents               int               `json:"total_patents"`
	DateRange                  DateRange         `json:"date_range"`
	ClassificationDistribution ClassDistribution `json:"classification_distribution"`
}

// Stats computes the record count, the publication date range, and the ten
// most common four-character classification prefixes. Records without a
// classification count as "OTHER"; equal counts keep first-seen order.
func (c *Corpus) Stats() Stats {
	st := Stats{TotalPatents: len(c.records), ClassificationDistribution: ClassDistribution{}}

	var minDate, maxDate string
	counts := make(map[string]int)
	var order []string
	for i := range c.records {
		r := &c.records[i]
		if d := r.PublicationDate; d != "" {
			if minDate == "" || d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
		}
		code := statsOtherClass
		if r.Classification != "" {
			code = truncateRunes(r.Classification, statsClassPrefixLen)
		}
		if _, seen := counts[code]; !seen {
			order = append(order, code)
		}
		counts[code]++
	}
	if minDate != "" {
		st.DateRange = DateRange{Min: &minDate, Max: &maxDate}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > statsTopClassifications {
		order = order[:statsTopClassifications]
	}
	for _, code := range order {
		st.ClassificationDistribution = append(st.ClassificationDistribution, ClassCount{Code: code, Count: counts[code]})
	}
	return st
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
