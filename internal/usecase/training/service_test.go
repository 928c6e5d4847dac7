package training

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
	domfeature "github.com/finradar/newsrank/internal/domain/feature"
	"github.com/finradar/newsrank/internal/ltr"
	featureuc "github.com/finradar/newsrank/internal/usecase/feature"
	rankuc "github.com/finradar/newsrank/internal/usecase/rank"
)

type fakeBase struct {
	candidates []domain.Candidate
	err        error
}

func (f *fakeBase) Search(context.Context, string, int, string) ([]domain.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Candidate, len(f.candidates))
	copy(out, f.candidates)
	return out, nil
}

func (f *fakeBase) QueryEntities(context.Context, string) map[string]struct{} {
	return map[string]struct{}{"сбер": {}}
}

type fakeFeatures struct{}

func (fakeFeatures) Extract(_ string, _ map[string]struct{}, cand *domain.Candidate) domfeature.Vector {
	return domfeature.Vector{EmbeddingScore: cand.Semantic}
}

type fakeSink struct {
	current *ltr.Artifact
	swaps   int
}

func (f *fakeSink) Swap(art *ltr.Artifact) { f.current = art; f.swaps++ }
func (f *fakeSink) Current() *ltr.Artifact { return f.current }

func intPtr(v int) *int { return &v }

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	return Config{
		ArtifactPath:       filepath.Join(dir, "model.json"),
		BackupDir:          filepath.Join(dir, "backups"),
		MinLabeledExamples: 6,
		Rounds:             20,
		LearningRate:       0.1,
		NumLeaves:          7,
		MaxDepth:           3,
		Seed:               42,
		EvalK:              10,
	}
}

// labeledExamples produces queries whose relevance tracks embedding_score.
func labeledExamples(queries int) []domain.TrainingExample {
	var out []domain.TrainingExample
	names := []string{"a", "b", "c"}
	scores := []float64{0.9, 0.5, 0.1}
	labels := []int{2, 1, 0}
	for q := 0; q < queries; q++ {
		query := "query-" + string(rune('a'+q))
		for i := range names {
			out = append(out, domain.TrainingExample{
				Query:    query,
				NewsID:   names[i],
				Features: domfeature.Vector{EmbeddingScore: scores[i]},
				Label:    intPtr(labels[i]),
			})
		}
	}
	return out
}

func TestGenerateCandidates(t *testing.T) {
	base := &fakeBase{candidates: []domain.Candidate{
		{Document: domain.Document{ID: "n1"}, Semantic: 0.8},
		{Document: domain.Document{ID: "n2"}, Semantic: 0.2},
	}}
	svc := New(base, fakeFeatures{}, &fakeSink{}, testConfig(t), zap.NewNop())

	examples, err := svc.GenerateCandidates(context.Background(), "ставка цб", 20, "")
	if err != nil {
		t.Fatalf("GenerateCandidates: %v", err)
	}

	if len(examples) != 2 {
		t.Fatalf("got %d examples, want 2", len(examples))
	}
	for i, ex := range examples {
		if ex.Label != nil {
			t.Fatalf("example %d has a label before annotation", i)
		}
		if ex.Query != "ставка цб" {
			t.Fatalf("example %d query = %q", i, ex.Query)
		}
	}
	if examples[0].Features.EmbeddingScore != 0.8 {
		t.Fatalf("feature extraction not applied: %v", examples[0].Features)
	}
}

func TestRetrain_TrainsAndSwaps(t *testing.T) {
	cfg := testConfig(t)
	sink := &fakeSink{}
	svc := New(&fakeBase{}, fakeFeatures{}, sink, cfg, zap.NewNop())

	report, err := svc.Retrain(context.Background(), labeledExamples(10))
	if err != nil {
		t.Fatalf("Retrain: %v", err)
	}

	if report.Examples != 30 || report.Queries != 10 {
		t.Fatalf("report examples=%d queries=%d, want 30/10", report.Examples, report.Queries)
	}
	if report.TrainQueries != 8 || report.ValQueries != 2 {
		t.Fatalf("split %d/%d, want 8/2", report.TrainQueries, report.ValQueries)
	}
	if report.ValidationNDCG < 0.9 {
		t.Fatalf("validation NDCG = %f, want >= 0.9 on separable data", report.ValidationNDCG)
	}
	if report.NewImportance["embedding_score"] <= 0 {
		t.Fatalf("embedding_score importance = %f, want > 0", report.NewImportance["embedding_score"])
	}
	if report.BackupID != "" {
		t.Fatalf("backup id = %q, want empty on first train", report.BackupID)
	}

	if sink.swaps != 1 || sink.current == nil {
		t.Fatalf("sink swaps=%d current=%v, want one swap with artifact", sink.swaps, sink.current)
	}
	if got := sink.current.Metadata.SchemaVersion; got != domfeature.SchemaVersion {
		t.Fatalf("artifact schema version = %d, want %d", got, domfeature.SchemaVersion)
	}

	if _, err := ltr.LoadArtifact(cfg.ArtifactPath); err != nil {
		t.Fatalf("artifact not persisted: %v", err)
	}
}

func TestRetrain_BacksUpPreviousArtifact(t *testing.T) {
	cfg := testConfig(t)
	sink := &fakeSink{}
	svc := New(&fakeBase{}, fakeFeatures{}, sink, cfg, zap.NewNop())

	if _, err := svc.Retrain(context.Background(), labeledExamples(10)); err != nil {
		t.Fatalf("first Retrain: %v", err)
	}
	report, err := svc.Retrain(context.Background(), labeledExamples(10))
	if err != nil {
		t.Fatalf("second Retrain: %v", err)
	}

	if report.BackupID == "" {
		t.Fatal("second retrain produced no backup")
	}
	if _, err := os.Stat(filepath.Join(cfg.BackupDir, report.BackupID)); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
	if report.OldImportance == nil {
		t.Fatal("second retrain reported no previous importance")
	}
}

func TestRetrain_NotEnoughExamples(t *testing.T) {
	svc := New(&fakeBase{}, fakeFeatures{}, &fakeSink{}, testConfig(t), zap.NewNop())

	_, err := svc.Retrain(context.Background(), labeledExamples(1))
	if !errors.Is(err, domain.ErrNotEnoughExamples) {
		t.Fatalf("err = %v, want ErrNotEnoughExamples", err)
	}
}

func TestRetrain_UnlabeledExamplesIgnored(t *testing.T) {
	svc := New(&fakeBase{}, fakeFeatures{}, &fakeSink{}, testConfig(t), zap.NewNop())

	examples := labeledExamples(1)
	for i := range examples {
		examples[i].Label = nil
	}
	examples = append(examples, labeledExamples(1)...)

	_, err := svc.Retrain(context.Background(), examples)
	if !errors.Is(err, domain.ErrNotEnoughExamples) {
		t.Fatalf("err = %v, want ErrNotEnoughExamples after dropping unlabeled rows", err)
	}
}

func TestRetrain_RejectsInvalidLabel(t *testing.T) {
	svc := New(&fakeBase{}, fakeFeatures{}, &fakeSink{}, testConfig(t), zap.NewNop())

	examples := labeledExamples(3)
	examples[0].Label = intPtr(7)

	_, err := svc.Retrain(context.Background(), examples)
	if !errors.Is(err, domain.ErrInvalidLabel) {
		t.Fatalf("err = %v, want ErrInvalidLabel", err)
	}
}

func TestSplitGroups_QueriesNeverStraddle(t *testing.T) {
	groups := groupByQuery(labeledExamples(10))

	train, val := splitGroups(groups, 7)

	seen := make(map[string]string)
	for _, g := range train {
		seen[g.query] = "train"
	}
	for _, g := range val {
		if side, ok := seen[g.query]; ok {
			t.Fatalf("query %q in both %s and val", g.query, side)
		}
		seen[g.query] = "val"
	}
	if len(seen) != 10 {
		t.Fatalf("split lost queries: %d of 10 present", len(seen))
	}
	if len(train) != 8 || len(val) != 2 {
		t.Fatalf("split sizes %d/%d, want 8/2", len(train), len(val))
	}
}

func TestSplitGroups_Deterministic(t *testing.T) {
	groups := groupByQuery(labeledExamples(10))

	t1, v1 := splitGroups(groups, 42)
	t2, v2 := splitGroups(groups, 42)

	for i := range t1 {
		if t1[i].query != t2[i].query {
			t.Fatalf("train order differs between runs at %d", i)
		}
	}
	for i := range v1 {
		if v1[i].query != v2[i].query {
			t.Fatalf("val order differs between runs at %d", i)
		}
	}
}

func TestGroupByQuery_InterleavedRows(t *testing.T) {
	examples := []domain.TrainingExample{
		{Query: "q1", NewsID: "a", Label: intPtr(1)},
		{Query: "q2", NewsID: "b", Label: intPtr(0)},
		{Query: "q1", NewsID: "c", Label: intPtr(2)},
	}

	groups := groupByQuery(examples)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].query != "q1" || len(groups[0].examples) != 2 {
		t.Fatalf("group 0 = %q with %d rows, want q1 with 2", groups[0].query, len(groups[0].examples))
	}
	if groups[1].query != "q2" || len(groups[1].examples) != 1 {
		t.Fatalf("group 1 = %q with %d rows, want q2 with 1", groups[1].query, len(groups[1].examples))
	}
}

// The dataset generator and the serving reranker must compute identical
// feature vectors for the same query and corpus; any divergence corrupts
// the model's predictions silently.
func TestGenerateCandidatesFeaturesMatchServing(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	base := &fakeBase{candidates: []domain.Candidate{
		{
			Document: domain.Document{
				ID:          "n1",
				Title:       "Сбербанк снизил ставки по ипотеке",
				Description: "Банк объявил о снижении",
				Source:      "РБК",
				Published:   now.Add(-30 * time.Hour).Format(time.RFC1123Z),
			},
			Semantic: 0.8,
			Entities: []domain.Entity{{NewsID: "n1", Normalized: "сбер", Type: domain.EntityOrganization}},
		},
		{
			Document: domain.Document{ID: "n2", Title: "Погода в Москве", Source: "блог"},
			Semantic: 0.2,
		},
	}}

	extractor := featureuc.NewExtractor(nil, featureuc.Config{
		HighAuthority: []string{"РБК"},
	}).WithClock(func() time.Time { return now })

	trainingSvc := New(base, extractor, &fakeSink{}, testConfig(t), zap.NewNop())
	rankSvc := rankuc.New(base, extractor, rankuc.Config{}, zap.NewNop())

	var ds ltr.Dataset
	for q := 0; q < 4; q++ {
		ds.Features = append(ds.Features,
			[]float64{0.9, 0, 0, 0, 0, 0, 0, 0, 0},
			[]float64{0.1, 0, 0, 0, 0, 0, 0, 0, 0},
		)
		ds.Labels = append(ds.Labels, 1, 0)
		ds.Groups = append(ds.Groups, 2)
	}
	model, err := ltr.Train(ds, ltr.Params{Rounds: 10, LearningRate: 0.1, NumLeaves: 3, MaxDepth: 2, MinSamplesLeaf: 1, EvalK: 10})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	rankSvc.Swap(&ltr.Artifact{Model: model, FeatureColumns: domfeature.Columns()})

	examples, err := trainingSvc.GenerateCandidates(context.Background(), "сбербанк ставки", 10, "")
	if err != nil {
		t.Fatalf("GenerateCandidates: %v", err)
	}
	res, err := rankSvc.Rank(context.Background(), "сбербанк ставки", 10, "")
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}

	serving := make(map[string]domfeature.Vector, len(res.Candidates))
	for _, c := range res.Candidates {
		if c.Features == nil {
			t.Fatalf("candidate %s has no feature vector attached", c.Document.ID)
		}
		serving[c.Document.ID] = *c.Features
	}

	if len(examples) != 2 || len(serving) != 2 {
		t.Fatalf("examples=%d serving=%d, want 2/2", len(examples), len(serving))
	}
	for _, ex := range examples {
		got, ok := serving[ex.NewsID]
		if !ok {
			t.Fatalf("document %s missing from serving candidates", ex.NewsID)
		}
		if got != ex.Features {
			t.Fatalf("feature vectors diverge for %s:\noffline: %+v\nserving: %+v", ex.NewsID, ex.Features, got)
		}
	}
}
