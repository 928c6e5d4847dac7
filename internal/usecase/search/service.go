// Package search implements hybrid retrieval: morphology-aware keyword
// matching, full-scan semantic similarity, entity overlap, and recency decay,
// fused into one base ranking. It is the single authoritative implementation
// of the fusion pipeline; every caller, including the learned reranker and
// the training dataset generator, goes through it.
package search

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
)

// Config holds the lexical tables and retrieval limits, loaded once at
// startup. The service never touches the filesystem per request.
type Config struct {
	PhraseSynonyms map[string][]string
	Synonyms       map[string][]string
	StopWords      []string
	Critical       []string
	High           []string
	Exclude        []string

	IncludeVectorOnly bool
	DefaultTopK       int
	MaxTopK           int
}

// Service ranks the corpus against free-text queries.
type Service struct {
	corpus CorpusReader
	embed  Embedder
	morph  Morphology
	ner    EntityExtractor
	cfg    Config
	stop   map[string]struct{}
	logger *zap.Logger
	now    func() time.Time
}

// New creates a search service.
func New(corpus CorpusReader, embed Embedder, morph Morphology, ner EntityExtractor, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 20
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 100
	}
	stop := make(map[string]struct{}, len(cfg.StopWords))
	for _, w := range cfg.StopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Service{
		corpus: corpus,
		embed:  embed,
		morph:  morph,
		ner:    ner,
		cfg:    cfg,
		stop:   stop,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source. Tests pin it to make recency
// deterministic.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Search runs the full fusion pipeline and returns the top base-ranked
// candidates with every per-channel score attached.
func (s *Service) Search(ctx context.Context, query string, topK int, category string) ([]domain.Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	topK = s.clampTopK(topK)

	corp, err := s.corpus.Snapshot(ctx, category)
	if err != nil {
		return nil, err
	}

	queryNER := s.QueryEntities(ctx, query)
	lex := s.lexicalScores(query, queryNER, corp)
	sem := s.semanticScores(ctx, query, corp)

	candidates := s.fuse(lex, sem, queryNER, corp, s.now())
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// QueryEntities extracts the normalized entity lemma set of a query.
// Extraction failure degrades to an empty set; entity boosts then simply
// contribute nothing.
func (s *Service) QueryEntities(ctx context.Context, query string) map[string]struct{} {
	if s.ner == nil {
		return nil
	}
	entities, err := s.ner.Extract(ctx, query)
	if err != nil {
		s.logger.Debug("query entity extraction failed", zap.Error(err))
		return nil
	}

	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		norm := e.Normalized
		if norm == "" {
			norm = e.Text
		}
		set[strings.ToLower(norm)] = struct{}{}
	}
	return set
}

func (s *Service) clampTopK(topK int) int {
	if topK <= 0 {
		return s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		return s.cfg.MaxTopK
	}
	return topK
}
