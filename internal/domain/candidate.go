package domain

import "github.com/finradar/newsrank/internal/domain/feature"

// Candidate is a scored (query, document) pairing produced during ranking.
// Per-channel scores are kept for observability alongside the fused score.
type Candidate struct {
	Document Document
	Entities []Entity

	Lexical       float64 // normalized keyword score, 0 when no lexical match
	Semantic      float64 // cosine similarity, 0 when the embedding is unusable
	EntityOverlap float64 // Jaccard of normalized entity sets
	RecencyBoost  float64 // age multiplier, 1.0..1.3
	Fused         float64

	// CriticalKeywords and HighKeywords count banking-keyword hits by tier,
	// and IsExcluded marks off-topic keyword hits. Observability only; the
	// relevance boost for all three is neutralized at 1.0.
	CriticalKeywords int
	HighKeywords     int
	IsExcluded       bool

	// ModelScore is set only when a ranking model rescored the candidate.
	ModelScore float64
	Reranked   bool

	// Features is populated when feature extraction ran for this candidate.
	Features *feature.Vector
}

// TrainingExample is a labeled (query, document) row. Examples are grouped by
// query; the grouping is load-bearing because the ranking loss is listwise.
type TrainingExample struct {
	Query    string
	NewsID   string
	Features feature.Vector
	Label    *int // 0..3, nil until annotated
}
