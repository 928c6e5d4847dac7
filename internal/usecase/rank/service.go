// Package rank layers a learned reranker on top of the base fusion ranking.
// With no model loaded the service passes the base order through unchanged;
// once an artifact is swapped in, it widens the candidate pool, rescores it
// with the model, and serves the model order. Artifact swaps are atomic and
// never block in-flight requests.
package rank

import (
	"context"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
	"github.com/finradar/newsrank/internal/ltr"
	"github.com/finradar/newsrank/internal/metrics"
)

const (
	// widenFactor and widenCap bound the candidate pool handed to the
	// model: min(widenCap, topK*widenFactor), never below topK.
	widenFactor = 10
	widenCap    = 100
)

// Mode reports which ranking produced a response.
type Mode string

const (
	ModeBase Mode = "base"
	ModeLTR  Mode = "ltr"
)

// Result is a ranked response plus the mode that produced it.
type Result struct {
	Candidates []domain.Candidate
	Mode       Mode
}

// Config holds result-size settings mirroring the search service, so the
// widened pool is computed from the same effective topK the base ranker
// would resolve on its own.
type Config struct {
	DefaultTopK int
}

// Service serves ranked search results, model-reranked when a model is
// available.
type Service struct {
	base     BaseRanker
	features FeatureExtractor
	cfg      Config
	artifact atomic.Pointer[ltr.Artifact]
	logger   *zap.Logger
}

// New creates a rank service in base mode. Call Swap or LoadFromDisk to
// enable model reranking.
func New(base BaseRanker, features FeatureExtractor, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 20
	}
	return &Service{base: base, features: features, cfg: cfg, logger: logger}
}

// LoadFromDisk loads a model artifact and swaps it in. A load failure leaves
// the current model (or base mode) in place.
func (s *Service) LoadFromDisk(path string) error {
	art, err := ltr.LoadArtifact(path)
	if err != nil {
		return err
	}
	s.Swap(art)
	s.logger.Info("ranking model loaded",
		zap.String("path", path),
		zap.Int("trees", len(art.Model.Trees)),
		zap.Time("trained_at", art.Metadata.TrainedAt))
	return nil
}

// Swap atomically replaces the serving model. A nil artifact returns the
// service to base mode.
func (s *Service) Swap(art *ltr.Artifact) {
	s.artifact.Store(art)
	if art != nil {
		metrics.RerankerModelLoaded.Set(1)
	} else {
		metrics.RerankerModelLoaded.Set(0)
	}
}

// Current returns the serving artifact, nil in base mode.
func (s *Service) Current() *ltr.Artifact {
	return s.artifact.Load()
}

// Rank returns the top candidates for a query. Without a model the fused
// base order is returned exactly as the search service produced it.
func (s *Service) Rank(ctx context.Context, query string, topK int, category string) (Result, error) {
	// An omitted topK must resolve before the pool is computed, or the
	// widened request would collapse to zero and the base ranker's own
	// default would cap the pool the model sees.
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	art := s.artifact.Load()
	if art == nil {
		candidates, err := s.base.Search(ctx, query, topK, category)
		if err != nil {
			return Result{}, err
		}
		return Result{Candidates: candidates, Mode: ModeBase}, nil
	}

	pool := topK * widenFactor
	if pool > widenCap {
		pool = widenCap
	}
	if pool < topK {
		pool = topK
	}

	candidates, err := s.base.Search(ctx, query, pool, category)
	if err != nil {
		return Result{}, err
	}

	queryNER := s.base.QueryEntities(ctx, query)
	for i := range candidates {
		vec := s.features.Extract(query, queryNER, &candidates[i])
		candidates[i].Features = &vec

		row, err := vec.Reorder(art.FeatureColumns)
		if err != nil {
			// Schema drift between serving and the artifact. Serve the
			// base order rather than a half-scored list.
			s.logger.Error("feature schema mismatch, serving base ranking", zap.Error(err))
			return s.baseFallback(candidates, topK), nil
		}
		score, err := art.Model.Predict(row)
		if err != nil {
			s.logger.Error("model prediction failed, serving base ranking", zap.Error(err))
			return s.baseFallback(candidates, topK), nil
		}
		candidates[i].ModelScore = score
		candidates[i].Reranked = true
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].ModelScore != candidates[b].ModelScore {
			return candidates[a].ModelScore > candidates[b].ModelScore
		}
		return candidates[a].Document.ID < candidates[b].Document.ID
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return Result{Candidates: candidates, Mode: ModeLTR}, nil
}

func (s *Service) baseFallback(candidates []domain.Candidate, topK int) Result {
	for i := range candidates {
		candidates[i].ModelScore = 0
		candidates[i].Reranked = false
	}
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return Result{Candidates: candidates, Mode: ModeBase}
}
