// Package feature defines the fixed, ordered feature schema shared by
// offline dataset generation and online scoring. The column order is part of
// the model artifact contract: a trained model is only valid against vectors
// laid out in the exact column order it was trained with.
package feature

import "fmt"

// SchemaVersion changes whenever a column is added, removed, or reordered.
const SchemaVersion = 1

// Vector is one extracted feature row for a (query, candidate) pair.
type Vector struct {
	EmbeddingScore  float64 // cosine similarity of query and document embeddings
	BM25Score       float64 // fraction of query terms present in title+description
	NEROverlap      float64 // Jaccard of normalized entity sets
	MorphoMatch     float64 // fraction of query terms whose lemma or surface form appears
	TitleMatch      float64 // Jaccard-style overlap of query and title token sets
	ExactMatch      float64 // 1.0 iff the whole query appears verbatim in the title
	DaysAgo         float64 // document age in whole days, 999 when unparsable
	SourceAuthority float64 // 1.0 high-authority source, 0.5 medium, else 0
	TextLength      float64 // character count of title+description
}

// Columns returns the canonical ordered column names.
func Columns() []string {
	return []string{
		"embedding_score",
		"bm25_score",
		"ner_overlap",
		"morpho_match",
		"title_match",
		"exact_match",
		"days_ago",
		"source_authority",
		"text_length",
	}
}

// Values returns the vector laid out in canonical column order.
func (v Vector) Values() []float64 {
	return []float64{
		v.EmbeddingScore,
		v.BM25Score,
		v.NEROverlap,
		v.MorphoMatch,
		v.TitleMatch,
		v.ExactMatch,
		v.DaysAgo,
		v.SourceAuthority,
		v.TextLength,
	}
}

// ByName returns the value of a single named column.
func (v Vector) ByName(column string) (float64, error) {
	switch column {
	case "embedding_score":
		return v.EmbeddingScore, nil
	case "bm25_score":
		return v.BM25Score, nil
	case "ner_overlap":
		return v.NEROverlap, nil
	case "morpho_match":
		return v.MorphoMatch, nil
	case "title_match":
		return v.TitleMatch, nil
	case "exact_match":
		return v.ExactMatch, nil
	case "days_ago":
		return v.DaysAgo, nil
	case "source_authority":
		return v.SourceAuthority, nil
	case "text_length":
		return v.TextLength, nil
	}
	return 0, fmt.Errorf("unknown feature column %q", column)
}

// Reorder lays the vector out in the given column order. Scoring uses the
// artifact's recorded columns, not the canonical order, so a model trained
// before a schema change keeps receiving the layout it expects.
func (v Vector) Reorder(columns []string) ([]float64, error) {
	out := make([]float64, len(columns))
	for i, col := range columns {
		val, err := v.ByName(col)
		if err != nil {
			return nil, fmt.Errorf("reorder features: %w", err)
		}
		out[i] = val
	}
	return out, nil
}
