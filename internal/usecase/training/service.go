// Package training builds labeled ranking datasets and retrains the model.
// It owns the offline half of the feature contract: dataset rows are
// extracted with the same FeatureExtractor serving uses, grouped by query,
// and written into the artifact together with the exact column order.
package training

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
	domfeature "github.com/finradar/newsrank/internal/domain/feature"
	"github.com/finradar/newsrank/internal/ltr"
	"github.com/finradar/newsrank/internal/metrics"
)

const (
	maxLabel      = 3
	trainFraction = 0.8
)

// Config holds training hyperparameters and artifact locations.
type Config struct {
	ArtifactPath       string
	BackupDir          string
	MinLabeledExamples int
	Rounds             int
	LearningRate       float64
	NumLeaves          int
	MaxDepth           int
	Seed               int64
	EvalK              int
}

// Report summarizes one retraining run.
type Report struct {
	Examples       int                `json:"examples"`
	Queries        int                `json:"queries"`
	TrainQueries   int                `json:"train_queries"`
	ValQueries     int                `json:"val_queries"`
	ValidationNDCG float64            `json:"validation_ndcg"`
	OldImportance  map[string]float64 `json:"old_importance,omitempty"`
	NewImportance  map[string]float64 `json:"new_importance"`
	BackupID       string             `json:"backup_id,omitempty"`
	TrainedAt      time.Time          `json:"trained_at"`
}

// Service generates training candidates and retrains the ranking model.
type Service struct {
	base     BaseRanker
	features FeatureExtractor
	sink     ModelSink
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a training service.
func New(base BaseRanker, features FeatureExtractor, sink ModelSink, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		base:     base,
		features: features,
		sink:     sink,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// GenerateCandidates runs the base ranking for a query and returns unlabeled
// training rows, features already extracted. Annotators fill in the labels.
func (s *Service) GenerateCandidates(ctx context.Context, query string, topK int, category string) ([]domain.TrainingExample, error) {
	candidates, err := s.base.Search(ctx, query, topK, category)
	if err != nil {
		return nil, err
	}

	queryNER := s.base.QueryEntities(ctx, query)
	examples := make([]domain.TrainingExample, 0, len(candidates))
	for i := range candidates {
		vec := s.features.Extract(query, queryNER, &candidates[i])
		examples = append(examples, domain.TrainingExample{
			Query:    query,
			NewsID:   candidates[i].Document.ID,
			Features: vec,
		})
	}
	return examples, nil
}

// Retrain fits a new model on the labeled examples, validates it, backs up
// the previous artifact, persists the new one, and swaps it into serving.
func (s *Service) Retrain(ctx context.Context, examples []domain.TrainingExample) (*Report, error) {
	labeled, err := filterLabeled(examples)
	if err != nil {
		return nil, err
	}
	if len(labeled) < s.cfg.MinLabeledExamples {
		return nil, fmt.Errorf("%w: have %d labeled examples, need %d",
			domain.ErrNotEnoughExamples, len(labeled), s.cfg.MinLabeledExamples)
	}

	groups := groupByQuery(labeled)
	trainGroups, valGroups := splitGroups(groups, s.cfg.Seed)

	trainDS := buildDataset(trainGroups)
	valDS := buildDataset(valGroups)

	params := ltr.Params{
		Rounds:         s.cfg.Rounds,
		LearningRate:   s.cfg.LearningRate,
		NumLeaves:      s.cfg.NumLeaves,
		MaxDepth:       s.cfg.MaxDepth,
		MinSamplesLeaf: 1,
		EvalK:          s.cfg.EvalK,
	}

	start := s.now()
	model, err := ltr.Train(trainDS, params)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("train ranking model: %w", err)
	}

	// Without enough queries for a held-out set the train groups double as
	// the evaluation set. The report still shows ValQueries=0.
	evalDS := valDS
	if len(valDS.Groups) == 0 {
		evalDS = trainDS
	}
	ndcg, err := model.Evaluate(evalDS, s.cfg.EvalK)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("evaluate ranking model: %w", err)
	}

	report := &Report{
		Examples:       len(labeled),
		Queries:        len(groups),
		TrainQueries:   len(trainGroups),
		ValQueries:     len(valGroups),
		ValidationNDCG: ndcg,
		NewImportance:  importanceByColumn(model),
		TrainedAt:      s.now().UTC(),
	}
	if old := s.sink.Current(); old != nil {
		report.OldImportance = importanceByColumn(old.Model)
	}

	backupID, err := s.backupCurrentArtifact()
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	report.BackupID = backupID

	art := &ltr.Artifact{
		Model:          model,
		FeatureColumns: domfeature.Columns(),
		Metadata: ltr.ArtifactMetadata{
			TrainedAt:      report.TrainedAt,
			Examples:       report.Examples,
			Queries:        report.Queries,
			ValidationNDCG: ndcg,
			SchemaVersion:  domfeature.SchemaVersion,
		},
	}
	if err := art.Save(s.cfg.ArtifactPath); err != nil {
		metrics.ModelReloadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist artifact: %w", err)
	}

	s.sink.Swap(art)
	metrics.ModelReloadsTotal.WithLabelValues("success").Inc()

	s.logger.Info("ranking model retrained",
		zap.Int("examples", report.Examples),
		zap.Int("queries", report.Queries),
		zap.Int("train_queries", report.TrainQueries),
		zap.Int("val_queries", report.ValQueries),
		zap.Float64("validation_ndcg", ndcg),
		zap.Duration("took", s.now().Sub(start)),
		zap.String("backup_id", backupID))
	return report, nil
}

// filterLabeled keeps annotated examples and rejects out-of-range labels.
func filterLabeled(examples []domain.TrainingExample) ([]domain.TrainingExample, error) {
	labeled := make([]domain.TrainingExample, 0, len(examples))
	for _, ex := range examples {
		if ex.Label == nil {
			continue
		}
		if *ex.Label < 0 || *ex.Label > maxLabel {
			return nil, fmt.Errorf("%w: label %d for news %q, want 0..%d",
				domain.ErrInvalidLabel, *ex.Label, ex.NewsID, maxLabel)
		}
		labeled = append(labeled, ex)
	}
	return labeled, nil
}

type queryGroup struct {
	query    string
	examples []domain.TrainingExample
}

// groupByQuery collates examples per query in first-seen order, so rows of
// one query stay contiguous regardless of input interleaving.
func groupByQuery(examples []domain.TrainingExample) []queryGroup {
	index := make(map[string]int)
	var groups []queryGroup
	for _, ex := range examples {
		i, ok := index[ex.Query]
		if !ok {
			i = len(groups)
			index[ex.Query] = i
			groups = append(groups, queryGroup{query: ex.Query})
		}
		groups[i].examples = append(groups[i].examples, ex)
	}
	return groups
}

// splitGroups shuffles whole query groups with a seeded source and cuts at
// 80%. Splitting by group keeps every query entirely in one side; a query
// straddling the split would leak validation labels into training.
func splitGroups(groups []queryGroup, seed int64) (train, val []queryGroup) {
	shuffled := make([]queryGroup, len(groups))
	copy(shuffled, groups)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	cut := int(float64(len(shuffled)) * trainFraction)
	if cut < 1 {
		cut = 1
	}
	if cut > len(shuffled) {
		cut = len(shuffled)
	}
	return shuffled[:cut], shuffled[cut:]
}

func buildDataset(groups []queryGroup) ltr.Dataset {
	var ds ltr.Dataset
	for _, g := range groups {
		for _, ex := range g.examples {
			ds.Features = append(ds.Features, ex.Features.Values())
			ds.Labels = append(ds.Labels, float64(*ex.Label))
		}
		ds.Groups = append(ds.Groups, len(g.examples))
	}
	return ds
}

func importanceByColumn(model *ltr.Model) map[string]float64 {
	cols := domfeature.Columns()
	out := make(map[string]float64, len(cols))
	for i, col := range cols {
		if i < len(model.ImportanceGain) {
			out[col] = model.ImportanceGain[i]
		}
	}
	return out
}

// backupCurrentArtifact copies the live artifact into the backup directory
// with a timestamped name. No live artifact means nothing to back up.
func (s *Service) backupCurrentArtifact() (string, error) {
	src, err := os.Open(s.cfg.ArtifactPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open current artifact: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	backupID := fmt.Sprintf("ltr_model_%s.json", s.now().UTC().Format("20060102T150405"))
	dst, err := os.Create(filepath.Join(s.cfg.BackupDir, backupID))
	if err != nil {
		return "", fmt.Errorf("create backup: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy backup: %w", err)
	}
	return backupID, nil
}
