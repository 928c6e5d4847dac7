package ltr

import (
	"container/heap"
	"sort"
)

// ridge regularizes leaf outputs against tiny hessian sums.
const ridge = 1e-6

// Node is one node of a flattened regression tree. Leaf nodes have
// Left == -1 and carry the output value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a regression tree over the feature space, stored flat so the
// artifact serializes without recursion.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for one feature row.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

type growCandidate struct {
	nodeID  int
	indices []int
	depth   int
	best    *split // nil when the node cannot be split further
}

// growHeap orders candidates by descending split gain.
type growHeap []*growCandidate

func (h growHeap) Len() int            { return len(h) }
func (h growHeap) Less(i, j int) bool  { return h[i].best.gain > h[j].best.gain }
func (h growHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *growHeap) Push(x any)         { *h = append(*h, x.(*growCandidate)) }
func (h *growHeap) Pop() any           { old := *h; n := len(old); x := old[n-1]; *h = old[:n-1]; return x }

type treeBuilder struct {
	features       [][]float64
	grad, hess     []float64
	maxDepth       int
	numLeaves      int
	minSamplesLeaf int

	// importance accumulates split gain per feature across the whole model.
	importance []float64
}

// build grows one tree leaf-wise: the splittable leaf with the highest gain
// splits first, until the leaf budget or the gain floor is hit.
func (b *treeBuilder) build(indices []int) Tree {
	tree := Tree{Nodes: []Node{b.leafNode(indices)}}

	h := &growHeap{}
	if s := b.bestSplit(indices, 0); s != nil {
		heap.Push(h, &growCandidate{nodeID: 0, indices: indices, depth: 0, best: s})
	}

	leaves := 1
	for h.Len() > 0 && leaves < b.numLeaves {
		cand := heap.Pop(h).(*growCandidate)
		s := cand.best

		left := b.leafNode(s.left)
		right := b.leafNode(s.right)
		leftID := len(tree.Nodes)
		tree.Nodes = append(tree.Nodes, left, right)

		tree.Nodes[cand.nodeID].Feature = s.feature
		tree.Nodes[cand.nodeID].Threshold = s.threshold
		tree.Nodes[cand.nodeID].Left = leftID
		tree.Nodes[cand.nodeID].Right = leftID + 1

		b.importance[s.feature] += s.gain
		leaves++

		childDepth := cand.depth + 1
		if childDepth < b.maxDepth {
			if ls := b.bestSplit(s.left, childDepth); ls != nil {
				heap.Push(h, &growCandidate{nodeID: leftID, indices: s.left, depth: childDepth, best: ls})
			}
			if rs := b.bestSplit(s.right, childDepth); rs != nil {
				heap.Push(h, &growCandidate{nodeID: leftID + 1, indices: s.right, depth: childDepth, best: rs})
			}
		}
	}

	return tree
}

// leafNode computes the newton-step output for a leaf.
func (b *treeBuilder) leafNode(indices []int) Node {
	var g, h float64
	for _, i := range indices {
		g += b.grad[i]
		h += b.hess[i]
	}
	return Node{Left: -1, Right: -1, Feature: -1, Value: g / (h + ridge)}
}

// bestSplit finds the highest-gain split of a leaf, or nil when no split
// satisfies the minimum leaf size or improves the objective.
func (b *treeBuilder) bestSplit(indices []int, depth int) *split {
	if depth >= b.maxDepth || len(indices) < 2*b.minSamplesLeaf {
		return nil
	}

	var totalG, totalH float64
	for _, i := range indices {
		totalG += b.grad[i]
		totalH += b.hess[i]
	}
	parentScore := totalG * totalG / (totalH + ridge)

	numFeatures := len(b.features[0])
	var best *split

	ordered := make([]int, len(indices))
	for f := 0; f < numFeatures; f++ {
		copy(ordered, indices)
		sort.Slice(ordered, func(a, c int) bool {
			return b.features[ordered[a]][f] < b.features[ordered[c]][f]
		})

		var leftG, leftH float64
		for pos := 0; pos < len(ordered)-1; pos++ {
			i := ordered[pos]
			leftG += b.grad[i]
			leftH += b.hess[i]

			cur, next := b.features[i][f], b.features[ordered[pos+1]][f]
			if cur == next {
				continue
			}
			if pos+1 < b.minSamplesLeaf || len(ordered)-pos-1 < b.minSamplesLeaf {
				continue
			}

			rightG := totalG - leftG
			rightH := totalH - leftH
			gain := leftG*leftG/(leftH+ridge) + rightG*rightG/(rightH+ridge) - parentScore
			if gain <= 0 {
				continue
			}
			if best == nil || gain > best.gain {
				best = &split{
					feature:   f,
					threshold: (cur + next) / 2,
					gain:      gain,
					left:      append([]int(nil), ordered[:pos+1]...),
					right:     append([]int(nil), ordered[pos+1:]...),
				}
			}
		}
	}

	return best
}
