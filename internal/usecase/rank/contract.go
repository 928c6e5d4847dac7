package rank

import (
	"context"

	"github.com/finradar/newsrank/internal/domain"
	domfeature "github.com/finradar/newsrank/internal/domain/feature"
)

// BaseRanker produces the fused base ranking the reranker widens and
// rescores.
type BaseRanker interface {
	Search(ctx context.Context, query string, topK int, category string) ([]domain.Candidate, error)
	QueryEntities(ctx context.Context, query string) map[string]struct{}
}

// FeatureExtractor computes the serving-side feature vector for one
// candidate. It must be the same implementation training uses.
type FeatureExtractor interface {
	Extract(query string, queryNER map[string]struct{}, cand *domain.Candidate) domfeature.Vector
}
