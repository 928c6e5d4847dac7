// Package ltr implements a listwise gradient-boosted ranking model
// (LambdaMART): regression trees fit to LambdaRank gradients derived from
// NDCG deltas within query groups. Training is deterministic for a given
// dataset and parameter set; there is no sampling.
package ltr

import (
	"fmt"
	"math"
)

// Params configures training.
type Params struct {
	Rounds         int
	LearningRate   float64
	NumLeaves      int
	MaxDepth       int
	MinSamplesLeaf int
	// EvalK is the NDCG cutoff used for gradient normalization and reporting.
	EvalK int
}

// DefaultParams mirrors the production training configuration.
func DefaultParams() Params {
	return Params{
		Rounds:         200,
		LearningRate:   0.05,
		NumLeaves:      31,
		MaxDepth:       6,
		MinSamplesLeaf: 1,
		EvalK:          10,
	}
}

// Dataset is a grouped ranking dataset. Rows of one query are contiguous;
// Groups records the consecutive group sizes, in order.
type Dataset struct {
	Features [][]float64
	Labels   []float64
	Groups   []int
}

// Validate checks structural consistency.
func (d *Dataset) Validate() error {
	if len(d.Features) != len(d.Labels) {
		return fmt.Errorf("ltr: %d feature rows but %d labels", len(d.Features), len(d.Labels))
	}
	total := 0
	for _, g := range d.Groups {
		if g <= 0 {
			return fmt.Errorf("ltr: non-positive group size %d", g)
		}
		total += g
	}
	if total != len(d.Labels) {
		return fmt.Errorf("ltr: group sizes sum to %d, want %d", total, len(d.Labels))
	}
	if len(d.Features) > 0 {
		width := len(d.Features[0])
		for i, row := range d.Features {
			if len(row) != width {
				return fmt.Errorf("ltr: feature row %d has width %d, want %d", i, len(row), width)
			}
		}
	}
	return nil
}

// Model is a trained additive ensemble of regression trees.
type Model struct {
	Trees          []Tree    `json:"trees"`
	LearningRate   float64   `json:"learning_rate"`
	NumFeatures    int       `json:"num_features"`
	ImportanceGain []float64 `json:"importance_gain"`
}

// Predict scores one feature row. Higher is more relevant.
func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != m.NumFeatures {
		return 0, fmt.Errorf("ltr: got %d features, model expects %d", len(x), m.NumFeatures)
	}
	score := 0.0
	for i := range m.Trees {
		score += m.LearningRate * m.Trees[i].Predict(x)
	}
	return score, nil
}

// Train fits a LambdaMART ensemble on a grouped dataset.
func Train(ds Dataset, p Params) (*Model, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if len(ds.Features) == 0 {
		return nil, fmt.Errorf("ltr: empty dataset")
	}
	if p.Rounds <= 0 || p.LearningRate <= 0 {
		return nil, fmt.Errorf("ltr: rounds and learning rate must be positive")
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = 1
	}
	if p.NumLeaves < 2 {
		p.NumLeaves = 2
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 6
	}

	n := len(ds.Features)
	numFeatures := len(ds.Features[0])

	model := &Model{
		LearningRate:   p.LearningRate,
		NumFeatures:    numFeatures,
		ImportanceGain: make([]float64, numFeatures),
	}

	scores := make([]float64, n)
	grad := make([]float64, n)
	hess := make([]float64, n)
	allIndices := make([]int, n)
	for i := range allIndices {
		allIndices[i] = i
	}

	// Ideal DCG per group is constant across rounds.
	ideals := make([]float64, len(ds.Groups))
	offset := 0
	for gi, size := range ds.Groups {
		ideals[gi] = idealDCG(ds.Labels[offset:offset+size], p.EvalK)
		offset += size
	}

	builder := &treeBuilder{
		features:       ds.Features,
		grad:           grad,
		hess:           hess,
		maxDepth:       p.MaxDepth,
		numLeaves:      p.NumLeaves,
		minSamplesLeaf: p.MinSamplesLeaf,
		importance:     model.ImportanceGain,
	}

	for round := 0; round < p.Rounds; round++ {
		lambdaGradients(ds, scores, ideals, grad, hess)

		tree := builder.build(allIndices)
		model.Trees = append(model.Trees, tree)

		for i, row := range ds.Features {
			scores[i] += p.LearningRate * tree.Predict(row)
		}
	}

	return model, nil
}

// lambdaGradients fills grad/hess with LambdaRank statistics: for every
// within-group pair ordered by label, the pairwise logistic gradient is
// weighted by the NDCG it would gain from swapping the pair.
func lambdaGradients(ds Dataset, scores, ideals, grad, hess []float64) {
	for i := range grad {
		grad[i] = 0
		hess[i] = 0
	}

	offset := 0
	for gi, size := range ds.Groups {
		if ideals[gi] > 0 {
			groupLambdas(
				ds.Labels[offset:offset+size],
				scores[offset:offset+size],
				ideals[gi],
				grad[offset:offset+size],
				hess[offset:offset+size],
			)
		}
		offset += size
	}
}

func groupLambdas(labels, scores []float64, idealDCG float64, grad, hess []float64) {
	order := rankByScore(scores)
	rank := make([]int, len(order))
	for pos, idx := range order {
		rank[idx] = pos
	}

	for i := 0; i < len(labels); i++ {
		for j := 0; j < len(labels); j++ {
			if labels[i] <= labels[j] {
				continue
			}

			// NDCG gained by swapping the mis-ordered pair.
			deltaGain := dcgGain(labels[i]) - dcgGain(labels[j])
			deltaDiscount := dcgDiscount(rank[i]) - dcgDiscount(rank[j])
			deltaNDCG := math.Abs(deltaGain*deltaDiscount) / idealDCG

			rho := 1 / (1 + math.Exp(scores[i]-scores[j]))
			l := rho * deltaNDCG
			w := rho * (1 - rho) * deltaNDCG

			grad[i] += l
			grad[j] -= l
			hess[i] += w
			hess[j] += w
		}
	}
}

// Evaluate returns the mean NDCG@k across the dataset's groups.
func (m *Model) Evaluate(ds Dataset, k int) (float64, error) {
	if err := ds.Validate(); err != nil {
		return 0, err
	}
	if len(ds.Groups) == 0 {
		return 0, nil
	}

	sum := 0.0
	offset := 0
	for _, size := range ds.Groups {
		scores := make([]float64, size)
		for i := 0; i < size; i++ {
			s, err := m.Predict(ds.Features[offset+i])
			if err != nil {
				return 0, err
			}
			scores[i] = s
		}
		sum += NDCGAt(scores, ds.Labels[offset:offset+size], k)
		offset += size
	}
	return sum / float64(len(ds.Groups)), nil
}
