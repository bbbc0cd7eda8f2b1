// Package features holds the regex heuristics that pull short technical
// phrases out of patent text and match claims against a query.
//
// These are approximations. There is no claim grammar here: a phrase is
// whatever follows a handful of claim verbs up to the next punctuation mark,
// and claim dependency is guessed from "claim N" back-references. The
// patterns and thresholds are fixed so results stay comparable across
// releases; replace the Extractor wholesale rather than tuning it piecemeal.
package features

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/common"
)

const (
	minFeatureRunes = 10 // exclusive
	maxFeatureRunes = 100
	maxFeatures     = 10

	overlapRatio    = 0.5
	overlapMinRunes = 3 // words must be longer than this

	maxIndependentClaims = 3
	maxMatchedClaims     = 5
	maxKeyDifferences    = 5
	differenceClaims     = 3

	// NovelFeaturePrefix labels each key difference.
	NovelFeaturePrefix = "Novel feature: "
)

var featurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`comprising\s+([^,;.]+)`),
	regexp.MustCompile(`including\s+([^,;.]+)`),
	regexp.MustCompile(`having\s+([^,;.]+)`),
	regexp.MustCompile(`configured to\s+([^,;.]+)`),
	regexp.MustCompile(`adapted to\s+([^,;.]+)`),
}

var claimBackReference = regexp.MustCompile(`claims?\s+\d+`)

// Embedder embeds texts for claim matching.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor is the feature heuristic used by the search scenarios.
type Extractor interface {
	ExtractFeatures(text string) []string
	OverlappingFeatures(features []string, r *patent.Record) []string
	IndependentClaims(claims []string) []string
	KeyDifferences(queryText string, r *patent.Record) []string
	MatchedClaims(ctx context.Context, emb Embedder, query []float32, claims []string, threshold float64) ([]string, error)
}

// RegexExtractor implements Extractor with fixed claim-verb patterns.
type RegexExtractor struct{}

// NewRegexExtractor returns the default extractor.
func NewRegexExtractor() RegexExtractor { return RegexExtractor{} }

// ExtractFeatures returns up to ten distinct lowercase phrases that follow
// "comprising", "including", "having", "configured to" or "adapted to",
// keeping phrases longer than 10 and shorter than 100 characters. Pattern
// order then match order decides which phrases survive the cap.
func (RegexExtractor) ExtractFeatures(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	out := []string{}
	for _, re := range featurePatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			phrase := strings.TrimSpace(m[1])
			n := utf8.RuneCountInString(phrase)
			if n <= minFeatureRunes || n >= maxFeatureRunes {
				continue
			}
			if _, dup := seen[phrase]; dup {
				continue
			}
			seen[phrase] = struct{}{}
			out = append(out, phrase)
			if len(out) == maxFeatures {
				return out
			}
		}
	}
	return out
}

// OverlappingFeatures keeps the features for which at least half of the words
// longer than three characters occur in the record's title, abstract and
// claims. A feature with no such words never overlaps.
func (RegexExtractor) OverlappingFeatures(features []string, r *patent.Record) []string {
	haystack := strings.ToLower(r.FullText())
	out := []string{}
	for _, f := range features {
		var words, hits int
		for _, w := range strings.Fields(f) {
			if utf8.RuneCountInString(w) <= overlapMinRunes {
				continue
			}
			words++
			if strings.Contains(haystack, w) {
				hits++
			}
		}
		if words > 0 && float64(hits) >= float64(words)*overlapRatio {
			out = append(out, f)
		}
	}
	return out
}

// IndependentClaims returns up to three claims that do not refer back to
// another claim. The first claim always counts as independent.
func (RegexExtractor) IndependentClaims(claims []string) []string {
	out := []string{}
	for i, c := range claims {
		if i == 0 || !claimBackReference.MatchString(strings.ToLower(c)) {
			out = append(out, c)
			if len(out) == maxIndependentClaims {
				break
			}
		}
	}
	return out
}

// KeyDifferences lists up to five query features absent from the features of
// the record's abstract and first three claims, each prefixed with
// NovelFeaturePrefix.
func (x RegexExtractor) KeyDifferences(queryText string, r *patent.Record) []string {
	recordText := r.Abstract + " " + strings.Join(r.LeadingClaims(differenceClaims), " ")
	known := make(map[string]struct{})
	for _, f := range x.ExtractFeatures(recordText) {
		known[f] = struct{}{}
	}
	out := []string{}
	for _, f := range x.ExtractFeatures(queryText) {
		if _, ok := known[f]; ok {
			continue
		}
		out = append(out, NovelFeaturePrefix+f)
		if len(out) == maxKeyDifferences {
			break
		}
	}
	return out
}

// MatchedClaims embeds every claim and returns, in claim order, up to five
// whose cosine similarity to query is at least threshold.
func (RegexExtractor) MatchedClaims(ctx context.Context, emb Embedder, query []float32, claims []string, threshold float64) ([]string, error) {
	out := []string{}
	if len(claims) == 0 {
		return out, nil
	}
	vecs, err := emb.EmbedTexts(ctx, claims)
	if err != nil {
		return nil, err
	}
	qNorm := common.Norm(query)
	for i, v := range vecs {
		if common.CosineWithNorms(v, query, common.Norm(v), qNorm) >= threshold {
			out = append(out, claims[i])
			if len(out) == maxMatchedClaims {
				break
			}
		}
	}
	return out, nil
}
