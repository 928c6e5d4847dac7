package ltr

import (
	"math"
	"sort"
)

// dcgGain is the graded-relevance gain used by NDCG: 2^label - 1.
func dcgGain(label float64) float64 {
	return math.Exp2(label) - 1
}

// dcgDiscount is the positional discount for a zero-based rank.
func dcgDiscount(rank int) float64 {
	return 1 / math.Log2(float64(rank)+2)
}

// rankByScore returns item indices ordered by score descending. Ties break by
// index so repeated evaluations are stable.
func rankByScore(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

// idealDCG computes the best achievable DCG@k for a label set.
func idealDCG(labels []float64, k int) float64 {
	sorted := append([]float64(nil), labels...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	dcg := 0.0
	for i, label := range sorted {
		if k > 0 && i >= k {
			break
		}
		dcg += dcgGain(label) * dcgDiscount(i)
	}
	return dcg
}

// NDCGAt computes NDCG@k for one query group given predicted scores and true
// labels. A group with no relevant item has an undefined NDCG; it reports 0.
func NDCGAt(scores, labels []float64, k int) float64 {
	ideal := idealDCG(labels, k)
	if ideal == 0 {
		return 0
	}

	dcg := 0.0
	for pos, idx := range rankByScore(scores) {
		if k > 0 && pos >= k {
			break
		}
		dcg += dcgGain(labels[idx]) * dcgDiscount(pos)
	}
	return dcg / ideal
}
