package search

import (
	"strings"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/vectorindex"
)

// Filter keeps a candidate when it returns true. A nil Filter keeps everything.
type Filter func(c vectorindex.Candidate, r *patent.Record) bool

// ApplyFilters drops candidates rejected by any filter. Survivors keep their
// relative order and scores.
func ApplyFilters(corpus *patent.Corpus, cands []vectorindex.Candidate, filters ...Filter) []vectorindex.Candidate {
	active := filters[:0:0]
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	out := make([]vectorindex.Candidate, 0, len(cands))
	for _, c := range cands {
		r := corpus.Record(c.Position)
		keep := true
		for _, f := range active {
			if !f(c, r) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

// ClassificationFilter keeps records whose classification starts with prefix,
// ignoring case.
func ClassificationFilter(prefix string) Filter {
	if prefix == "" {
		return nil
	}
	p := strings.ToUpper(prefix)
	return func(_ vectorindex.Candidate, r *patent.Record) bool {
		return strings.HasPrefix(strings.ToUpper(r.Classification), p)
	}
}

// DateFilter keeps records published within [from, to]. Either bound may be
// empty. Records without a publication date are dropped once any bound is set.
func DateFilter(from, to string) Filter {
	if from == "" && to == "" {
		return nil
	}
	return func(_ vectorindex.Candidate, r *patent.Record) bool {
		d := r.PublicationDate
		if d == "" {
			return false
		}
		if from != "" && d < from {
			return false
		}
		if to != "" && d > to {
			return false
		}
		return true
	}
}

// KeywordFilter keeps records whose full text contains every keyword.
func KeywordFilter(keywords []string) Filter {
	if len(keywords) == 0 {
		return nil
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return func(_ vectorindex.Candidate, r *patent.Record) bool {
		text := strings.ToLower(r.FullText())
		for _, k := range lowered {
			if !strings.Contains(text, k) {
				return false
			}
		}
		return true
	}
}

// TitleFilter keeps records whose title contains the trimmed query, ignoring
// case. A blank query filters nothing.
func TitleFilter(query string) Filter {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return func(_ vectorindex.Candidate, r *patent.Record) bool {
		return strings.Contains(strings.ToLower(r.Title), q)
	}
}

// MinScoreFilter keeps candidates scoring at least floor.
func MinScoreFilter(floor float64) Filter {
	return func(c vectorindex.Candidate, _ *patent.Record) bool {
		return c.Score >= floor
	}
}

// ExcludePositionFilter drops the candidate at corpus position pos.
func ExcludePositionFilter(pos int) Filter {
	if pos < 0 {
		return nil
	}
	return func(c vectorindex.Candidate, _ *patent.Record) bool {
		return c.Position != pos
	}
}

// ExcludeDocFilter drops candidates whose doc number equals docNumber exactly.
func ExcludeDocFilter(docNumber string) Filter {
	if docNumber == "" {
		return nil
	}
	return func(_ vectorindex.Candidate, r *patent.Record) bool {
		return r.DocNumber != docNumber
	}
}

func truncate(cands []vectorindex.Candidate, k int) []vectorindex.Candidate {
	if len(cands) > k {
		return cands[:k]
	}
	return cands
}
