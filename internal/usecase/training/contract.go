package training

import (
	"context"

	"github.com/finradar/newsrank/internal/domain"
	domfeature "github.com/finradar/newsrank/internal/domain/feature"
	"github.com/finradar/newsrank/internal/ltr"
)

// BaseRanker supplies the fused candidates and query entities that dataset
// generation features are computed from.
type BaseRanker interface {
	Search(ctx context.Context, query string, topK int, category string) ([]domain.Candidate, error)
	QueryEntities(ctx context.Context, query string) map[string]struct{}
}

// FeatureExtractor is the shared feature implementation. Training and
// serving must use the same one; the columns written into the artifact are
// the contract between them.
type FeatureExtractor interface {
	Extract(query string, queryNER map[string]struct{}, cand *domain.Candidate) domfeature.Vector
}

// ModelSink receives the freshly trained artifact for serving.
type ModelSink interface {
	Swap(art *ltr.Artifact)
	Current() *ltr.Artifact
}
