package anomaly

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
)

// ForestConfig controls isolation forest training.
type ForestConfig struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          uint64
}

// DefaultForestConfig returns 100 trees of 256 samples at 5% contamination.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.05,
		Seed:          42,
	}
}

// ErrNoTrainingData is returned when Fit is given no samples.
var ErrNoTrainingData = errors.New("anomaly: no training data")

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int // samples reaching a leaf
}

func (n *node) leaf() bool { return n.left == nil }

// IsolationForest is an immutable fitted forest. Safe for concurrent use.
type IsolationForest struct {
	trees      []*node
	sampleSize int
	dims       int
	offset     float64
}

// Fit trains a forest on rows of equal width.
func Fit(data [][]float64, cfg ForestConfig) (*IsolationForest, error) {
	if len(data) == 0 {
		return nil, ErrNoTrainingData
	}
	dims := len(data[0])
	if dims == 0 {
		return nil, errors.New("anomaly: samples have no features")
	}
	for _, row := range data {
		if len(row) != dims {
			return nil, errors.New("anomaly: ragged training data")
		}
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	psi := cfg.SampleSize
	if psi <= 0 || psi > len(data) {
		psi = len(data)
	}
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	f := &IsolationForest{
		trees:      make([]*node, cfg.Trees),
		sampleSize: psi,
		dims:       dims,
	}
	for i := range f.trees {
		idx := rng.Perm(len(data))[:psi]
		sample := make([][]float64, psi)
		for j, k := range idx {
			sample[j] = data[k]
		}
		f.trees[i] = grow(sample, 0, maxDepth, rng)
	}

	train := f.ScoreSamples(data)
	f.offset = percentile(train, 100*cfg.Contamination)
	return f, nil
}

func grow(rows [][]float64, depth, maxDepth int, rng *rand.Rand) *node {
	if depth >= maxDepth || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	dims := len(rows[0])
	var candidates []int
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo[d], hi[d] = math.Inf(1), math.Inf(-1)
		for _, r := range rows {
			lo[d] = math.Min(lo[d], r[d])
			hi[d] = math.Max(hi[d], r[d])
		}
		if hi[d] > lo[d] {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	q := candidates[rng.IntN(len(candidates))]
	p := lo[q] + rng.Float64()*(hi[q]-lo[q])

	var left, right [][]float64
	for _, r := range rows {
		if r[q] < p {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &node{
		feature: q,
		split:   p,
		left:    grow(left, depth+1, maxDepth, rng),
		right:   grow(right, depth+1, maxDepth, rng),
	}
}

// avgPathLength is c(n), the expected path length of an unsuccessful BST
// search over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+0.5772156649015329) - 2*(fn-1)/fn
}

func pathLength(n *node, x []float64) float64 {
	depth := 0.0
	for !n.leaf() {
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + avgPathLength(n.size)
}

// ScoreSamples returns the negated anomaly score of each row, in (-1, 0].
// Lower is more anomalous.
func (f *IsolationForest) ScoreSamples(data [][]float64) []float64 {
	out := make([]float64, len(data))
	norm := avgPathLength(f.sampleSize)
	if norm == 0 {
		norm = 1
	}
	for i, x := range data {
		if len(x) != f.dims {
			out[i] = 0
			continue
		}
		var total float64
		for _, t := range f.trees {
			total += pathLength(t, x)
		}
		mean := total / float64(len(f.trees))
		out[i] = -math.Pow(2, -mean/norm)
	}
	return out
}

// Decision returns ScoreSamples shifted so that negative values are outliers
// at the configured contamination.
func (f *IsolationForest) Decision(data [][]float64) []float64 {
	s := f.ScoreSamples(data)
	for i := range s {
		s[i] -= f.offset
	}
	return s
}

// DecisionFunction scores one-dimensional amount samples.
func (f *IsolationForest) DecisionFunction(amounts []float64) []float64 {
	return f.Decision(column(amounts))
}

// Offset is the decision threshold learned at fit time.
func (f *IsolationForest) Offset() float64 { return f.offset }

func column(vals []float64) [][]float64 {
	rows := make([][]float64, len(vals))
	for i, v := range vals {
		rows[i] = []float64{v}
	}
	return rows
}

// percentile uses linear interpolation between closest ranks.
func percentile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	if q <= 0 {
		return s[0]
	}
	if q >= 100 {
		return s[len(s)-1]
	}
	pos := q / 100 * float64(len(s)-1)
	i := int(math.Floor(pos))
	frac := pos - float64(i)
	if i+1 >= len(s) {
		return s[i]
	}
	return s[i] + frac*(s[i+1]-s[i])
}
