// Package chi implements the HTTP API: search, training candidates,
// retraining, and corpus statistics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
	domfeature "github.com/finradar/newsrank/internal/domain/feature"
	"github.com/finradar/newsrank/internal/ltr"
	"github.com/finradar/newsrank/internal/metrics"
	"github.com/finradar/newsrank/internal/repository/corpus"
	rankuc "github.com/finradar/newsrank/internal/usecase/rank"
	traininguc "github.com/finradar/newsrank/internal/usecase/training"
)

// Ranker serves ranked search results.
type Ranker interface {
	Rank(ctx context.Context, query string, topK int, category string) (rankuc.Result, error)
	Current() *ltr.Artifact
}

// Trainer generates datasets and retrains the model.
type Trainer interface {
	GenerateCandidates(ctx context.Context, query string, topK int, category string) ([]domain.TrainingExample, error)
	Retrain(ctx context.Context, examples []domain.TrainingExample) (*traininguc.Report, error)
}

// StatsProvider reports corpus statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (*corpus.Stats, error)
	EntityStats(ctx context.Context, topN int) (*corpus.EntityStats, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server is the HTTP API server.
type Server struct {
	ranker        Ranker
	trainer       Trainer
	stats         StatsProvider
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ranker Ranker, trainer Trainer, stats StatsProvider, logger *zap.Logger) *Server {
	s := &Server{
		ranker:  ranker,
		trainer: trainer,
		stats:   stats,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, "empty_query"),
		sentinelHandler(domain.ErrInvalidLabel, http.StatusBadRequest, "invalid_label"),
		sentinelHandler(domain.ErrNotEnoughExamples, http.StatusBadRequest, "not_enough_examples"),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, "document_not_found"),
		sentinelHandler(domain.ErrModelNotLoaded, http.StatusConflict, "model_not_loaded"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
	}
	return s
}

// Routes mounts all API endpoints on a router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Post("/candidates", s.handleCandidates)
	r.Post("/retrain", s.handleRetrain)
	r.Get("/model", s.handleModel)
	r.Get("/stats", s.handleStats)
	r.Get("/entities/stats", s.handleEntityStats)
	r.Get("/health", s.handleHealth)
}

type searchRequest struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	Category string `json:"category"`
}

type searchResult struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Source           string             `json:"source,omitempty"`
	Category         string             `json:"category,omitempty"`
	Link             string             `json:"link,omitempty"`
	Published        string             `json:"published,omitempty"`
	Lexical          float64            `json:"lexical_score"`
	Semantic         float64            `json:"semantic_score"`
	EntityOverlap    float64            `json:"entity_overlap"`
	RecencyBoost     float64            `json:"recency_boost"`
	Fused            float64            `json:"fused_score"`
	CriticalKeywords int                `json:"critical_keywords"`
	HighKeywords     int                `json:"high_keywords"`
	IsExcluded       bool               `json:"is_excluded"`
	Entities         []entityTag        `json:"entities,omitempty"`
	ModelScore       *float64           `json:"model_score,omitempty"`
	Features         map[string]float64 `json:"features,omitempty"`
}

type entityTag struct {
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
	Type       string `json:"type"`
	IsBanking  bool   `json:"is_banking,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Mode    string         `json:"mode"`
	Total   int            `json:"total"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	result, err := s.ranker.Rank(r.Context(), req.Query, req.TopK, req.Category)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("unknown", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	mode := string(result.Mode)
	metrics.SearchRequestsTotal.WithLabelValues(mode, "success").Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.SearchCandidates.Observe(float64(len(result.Candidates)))

	resp := searchResponse{
		Results: make([]searchResult, 0, len(result.Candidates)),
		Mode:    mode,
		Total:   len(result.Candidates),
	}
	for _, c := range result.Candidates {
		resp.Results = append(resp.Results, toSearchResult(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toSearchResult(c domain.Candidate) searchResult {
	out := searchResult{
		ID:               c.Document.ID,
		Title:            c.Document.Title,
		Description:      c.Document.Description,
		Source:           c.Document.Source,
		Category:         c.Document.Category,
		Link:             c.Document.Link,
		Published:        c.Document.Published,
		Lexical:          c.Lexical,
		Semantic:         c.Semantic,
		EntityOverlap:    c.EntityOverlap,
		RecencyBoost:     c.RecencyBoost,
		Fused:            c.Fused,
		CriticalKeywords: c.CriticalKeywords,
		HighKeywords:     c.HighKeywords,
		IsExcluded:       c.IsExcluded,
	}
	for _, e := range c.Entities {
		out.Entities = append(out.Entities, entityTag{
			Text:       e.Text,
			Normalized: e.Normalized,
			Type:       string(e.Type),
			IsBanking:  e.IsBanking,
		})
	}
	if c.Reranked {
		score := c.ModelScore
		out.ModelScore = &score
	}
	if c.Features != nil {
		out.Features = featureMap(*c.Features)
	}
	return out
}

type candidatesRequest struct {
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	Category string `json:"category"`
}

type exampleDTO struct {
	Query    string             `json:"query"`
	NewsID   string             `json:"news_id"`
	Features map[string]float64 `json:"features"`
	Label    *int               `json:"label"`
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	var req candidatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	examples, err := s.trainer.GenerateCandidates(r.Context(), req.Query, req.TopK, req.Category)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := make([]exampleDTO, 0, len(examples))
	for _, ex := range examples {
		out = append(out, exampleDTO{
			Query:    ex.Query,
			NewsID:   ex.NewsID,
			Features: featureMap(ex.Features),
			Label:    ex.Label,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"examples": out,
		"total":    len(out),
	})
}

type retrainRequest struct {
	Examples []exampleDTO `json:"examples"`
}

func (s *Server) handleRetrain(w http.ResponseWriter, r *http.Request) {
	var req retrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	examples := make([]domain.TrainingExample, 0, len(req.Examples))
	for _, dto := range req.Examples {
		vec, err := featureVector(dto.Features)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		examples = append(examples, domain.TrainingExample{
			Query:    dto.Query,
			NewsID:   dto.NewsID,
			Features: vec,
			Label:    dto.Label,
		})
	}

	report, err := s.trainer.Retrain(r.Context(), examples)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	art := s.ranker.Current()
	if art == nil {
		writeJSON(w, http.StatusOK, map[string]any{"mode": "base"})
		return
	}

	importance := make(map[string]float64, len(art.FeatureColumns))
	for i, col := range art.FeatureColumns {
		if i < len(art.Model.ImportanceGain) {
			importance[col] = art.Model.ImportanceGain[i]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":            "ltr",
		"trees":           len(art.Model.Trees),
		"feature_columns": art.FeatureColumns,
		"importance":      importance,
		"metadata":        art.Metadata,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEntityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.EntityStats(r.Context(), 0)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "base"
	if s.ranker.Current() != nil {
		status = "ltr"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   status,
	})
}

func featureMap(v domfeature.Vector) map[string]float64 {
	cols := domfeature.Columns()
	vals := v.Values()
	out := make(map[string]float64, len(cols))
	for i, col := range cols {
		out[col] = vals[i]
	}
	return out
}

func featureVector(m map[string]float64) (domfeature.Vector, error) {
	var probe domfeature.Vector
	for col := range m {
		if _, err := probe.ByName(col); err != nil {
			return domfeature.Vector{}, err
		}
	}
	return domfeature.Vector{
		EmbeddingScore:  m["embedding_score"],
		BM25Score:       m["bm25_score"],
		NEROverlap:      m["ner_overlap"],
		MorphoMatch:     m["morpho_match"],
		TitleMatch:      m["title_match"],
		ExactMatch:      m["exact_match"],
		DaysAgo:         m["days_ago"],
		SourceAuthority: m["source_authority"],
		TextLength:      m["text_length"],
	}, nil
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// sentinelHandler returns an errorHandler matching a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
