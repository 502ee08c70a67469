package model

import (
	"math/rand"
	"sort"
)

// Node is one node of a regression tree, addressed by index into Tree.Nodes.
// Internal nodes route row x left when x[Feature] <= Threshold.
type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

// Tree is a single regression tree. Node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predictRow(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// split is a candidate partition of one leaf.
type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// leafCandidate is a grown leaf that may still be expanded.
type leafCandidate struct {
	node  int // index into Tree.Nodes
	rows  []int
	depth int
	best  *split
}

// growTree grows one regression tree on the residuals with best-first leaf
// expansion: the leaf whose split yields the largest squared-error reduction
// is expanded next, until the leaf budget, the depth bound, or zero gain
// stops growth. Reports false when not even the root can be split.
//
// Determinism: candidate ordering is fully specified (gain, then node
// index); the rng only participates when feature subsampling is enabled.
func growTree(data [][]float64, residual []float64, p Hyperparams, rng *rand.Rand) (Tree, bool) {
	features := sampleFeatures(len(data[0]), p.FeatureFraction, rng)

	rows := make([]int, len(data))
	for i := range rows {
		rows[i] = i
	}

	t := Tree{Nodes: []Node{{Leaf: true, Value: meanAt(residual, rows)}}}
	root := &leafCandidate{node: 0, rows: rows, depth: 0}
	root.best = bestSplit(data, residual, rows, features, p)
	if root.best == nil {
		return Tree{}, false
	}

	open := []*leafCandidate{root}
	leaves := 1
	for leaves < p.NumLeaves {
		// Pick the expandable leaf with the largest gain; ties resolve to
		// the lowest node index.
		bestIdx := -1
		for i, c := range open {
			if c.best == nil {
				continue
			}
			if bestIdx == -1 || c.best.gain > open[bestIdx].best.gain ||
				(c.best.gain == open[bestIdx].best.gain && c.node < open[bestIdx].node) {
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		c := open[bestIdx]
		open = append(open[:bestIdx], open[bestIdx+1:]...)

		left := &leafCandidate{node: len(t.Nodes), rows: c.best.left, depth: c.depth + 1}
		right := &leafCandidate{node: len(t.Nodes) + 1, rows: c.best.right, depth: c.depth + 1}
		t.Nodes = append(t.Nodes,
			Node{Leaf: true, Value: meanAt(residual, left.rows)},
			Node{Leaf: true, Value: meanAt(residual, right.rows)},
		)
		t.Nodes[c.node] = Node{
			Feature:   c.best.feature,
			Threshold: c.best.threshold,
			Left:      left.node,
			Right:     right.node,
		}
		leaves++

		if left.depth < p.MaxDepth {
			left.best = bestSplit(data, residual, left.rows, features, p)
		}
		if right.depth < p.MaxDepth {
			right.best = bestSplit(data, residual, right.rows, features, p)
		}
		open = append(open, left, right)
	}
	return t, true
}

// bestSplit finds the squared-error-optimal threshold split of rows across
// the candidate features, or nil when no split has positive gain.
func bestSplit(data [][]float64, residual []float64, rows []int, features []int, p Hyperparams) *split {
	n := len(rows)
	if n < 2*p.MinLeafRows {
		return nil
	}

	total := 0.0
	for _, r := range rows {
		total += residual[r]
	}

	var best *split
	order := make([]int, n)
	for _, f := range features {
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool { return data[order[i]][f] < data[order[j]][f] })

		leftSum := 0.0
		for i := 1; i < n; i++ {
			leftSum += residual[order[i-1]]
			prev, cur := data[order[i-1]][f], data[order[i]][f]
			if prev == cur {
				continue
			}
			if i < p.MinLeafRows || n-i < p.MinLeafRows {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/float64(i) + rightSum*rightSum/float64(n-i) - total*total/float64(n)
			if gain <= 0 {
				continue
			}
			thr := (prev + cur) / 2
			if best == nil || gain > best.gain ||
				(gain == best.gain && (f < best.feature || (f == best.feature && thr < best.threshold))) {
				// order is reused per feature; keep stable copies.
				best = &split{
					feature:   f,
					threshold: thr,
					gain:      gain,
					left:      append([]int(nil), order[:i]...),
					right:     append([]int(nil), order[i:]...),
				}
			}
		}
	}
	return best
}

// sampleFeatures selects the feature subset for one tree. With fraction 1 the
// full ordered feature set is used and the rng is untouched.
func sampleFeatures(numFeatures int, fraction float64, rng *rand.Rand) []int {
	all := make([]int, numFeatures)
	for i := range all {
		all[i] = i
	}
	if fraction >= 1 {
		return all
	}
	k := int(fraction * float64(numFeatures))
	if k < 1 {
		k = 1
	}
	rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	picked := all[:k]
	sort.Ints(picked)
	return picked
}

func meanAt(residual []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	s := 0.0
	for _, r := range rows {
		s += residual[r]
	}
	return s / float64(len(rows))
}
