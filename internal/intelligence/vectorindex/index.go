// Package vectorindex holds one embedding per corpus record, in corpus order,
// and ranks records by cosine similarity against a query vector. Indexes are
// persisted so the embedding cost of a corpus is paid once.
package vectorindex

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/whoiskiwi/PatentSearch/internal/domain/patent"
	"github.com/whoiskiwi/PatentSearch/internal/intelligence/common"
	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// documentClaims is how many leading claims contribute to a record's
// embedding text.
const documentClaims = 3

// Candidate is a ranked record position and its cosine similarity.
type Candidate struct {
	Position int
	Score    float64
}

// QueryEmbedder embeds a single query text.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index is an immutable matrix of row vectors with cached norms.
type Index struct {
	dim     int
	vectors [][]float32
	norms   []float64
}

// New builds an index over vectors, which must share one dimension. The slice
// is retained, not copied.
func New(vectors [][]float32) (*Index, error) {
	ix := &Index{vectors: vectors, norms: make([]float64, len(vectors))}
	if len(vectors) > 0 {
		ix.dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != ix.dim {
			return nil, apperrors.Newf(apperrors.CodeIndexBuild,
				"vector %d has dimension %d, expected %d", i, len(v), ix.dim)
		}
		ix.norms[i] = common.Norm(v)
	}
	return ix, nil
}

// Len is the number of rows.
func (ix *Index) Len() int { return len(ix.vectors) }

// Dim is the vector dimension, zero for an empty index.
func (ix *Index) Dim() int { return ix.dim }

// Vector returns row i.
func (ix *Index) Vector(i int) []float32 { return ix.vectors[i] }

// Rank scores every row against query and returns at most limit candidates in
// non-increasing score order. Equal scores keep row order.
func (ix *Index) Rank(query []float32, limit int) ([]Candidate, error) {
	if limit <= 0 || len(ix.vectors) == 0 {
		return []Candidate{}, nil
	}
	if len(query) != ix.dim {
		return nil, apperrors.Newf(apperrors.CodeEmbeddingFailed,
			"query dimension %d does not match index dimension %d", len(query), ix.dim)
	}

	qNorm := common.Norm(query)
	cands := make([]Candidate, len(ix.vectors))
	for i, v := range ix.vectors {
		cands[i] = Candidate{Position: i, Score: common.CosineWithNorms(v, query, ix.norms[i], qNorm)}
	}
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(cands) > limit {
		cands = cands[:limit]
	}
	return cands, nil
}

// RankText embeds text and ranks against it. The query vector is returned so
// callers can reuse it for claim matching.
func (ix *Index) RankText(ctx context.Context, emb QueryEmbedder, text string, limit int) ([]Candidate, []float32, error) {
	q, err := emb.EmbedQuery(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	cands, err := ix.Rank(q, limit)
	if err != nil {
		return nil, nil, err
	}
	return cands, q, nil
}

// DocumentText is the text embedded for a record: title, abstract and the
// first three claims separated by single spaces.
func DocumentText(r *patent.Record) string {
	var sb strings.Builder
	sb.WriteString(r.Title)
	sb.WriteByte(' ')
	sb.WriteString(r.Abstract)
	sb.WriteByte(' ')
	sb.WriteString(strings.Join(r.LeadingClaims(documentClaims), " "))
	return sb.String()
}
