package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

const eulerGamma = 0.5772156649015329

// OutlierResult is the outcome of isolation-forest outlier detection.
type OutlierResult struct {
	Contamination float64
	Inliers       int
	Outliers      int
	// Threshold is the cut-off on the negated anomaly score; rows below it are outliers.
	Threshold float64
	// Labels holds 1 for inliers and -1 for outliers, per row.
	Labels []int
	// Scores holds the anomaly score in (0, 1] per row; higher is more anomalous.
	Scores []float64
	Top    []RowScore
}

// RowScore pairs a row index with its anomaly score.
type RowScore struct {
	Row   int
	Score float64
}

// Counts returns the number of rows per label, keyed 1 and -1.
func (r *OutlierResult) Counts() map[int]int {
	return map[int]int{1: r.Inliers, -1: r.Outliers}
}

// DetectOutliers fits an isolation forest over the numeric columns of f and
// labels the most isolated Contamination share of rows as outliers.
func DetectOutliers(f *dataset.Frame, opt Options) (*OutlierResult, error) {
	x, _ := numericMatrix(f)
	if x == nil {
		return nil, fmt.Errorf("%w: no numeric data for outlier detection", ErrInsufficientData)
	}
	if opt.Contamination <= 0 || opt.Contamination > 0.5 {
		return nil, fmt.Errorf("contamination must be in (0, 0.5], got %v", opt.Contamination)
	}
	rows, _ := x.Dims()
	rng := rand.New(rand.NewSource(opt.Seed))
	forest := fitForest(x, opt.Trees, opt.MaxSamples, rng)

	res := &OutlierResult{Contamination: opt.Contamination, Labels: make([]int, rows), Scores: make([]float64, rows)}
	neg := make([]float64, rows)
	for i := 0; i < rows; i++ {
		s := forest.score(x.RawRowView(i))
		res.Scores[i] = s
		neg[i] = -s
	}
	sorted := append([]float64(nil), neg...)
	sort.Float64s(sorted)
	res.Threshold = Quantile(sorted, opt.Contamination)
	for i, v := range neg {
		if v < res.Threshold {
			res.Labels[i] = -1
			res.Outliers++
		} else {
			res.Labels[i] = 1
			res.Inliers++
		}
	}
	res.Top = topScores(res.Scores, opt.TopOutliers)
	return res, nil
}

func topScores(scores []float64, limit int) []RowScore {
	out := make([]RowScore, len(scores))
	for i, s := range scores {
		out[i] = RowScore{Row: i, Score: s}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// numericMatrix packs the numeric columns of f into a rows×cols matrix.
// Missing cells must already be imputed. It returns nil when there is no
// numeric column or no row.
func numericMatrix(f *dataset.Frame) (*mat.Dense, []string) {
	cols := f.Numeric()
	if len(cols) == 0 || f.Rows == 0 {
		return nil, nil
	}
	names := make([]string, len(cols))
	x := mat.NewDense(f.Rows, len(cols), nil)
	for j, c := range cols {
		names[j] = c.Name
		for i, v := range c.Num {
			x.Set(i, j, v)
		}
	}
	return x, names
}

type iforest struct {
	trees   []*itreeNode
	samples int
}

type itreeNode struct {
	leaf        bool
	size        int
	feature     int
	split       float64
	left, right *itreeNode
}

func fitForest(x *mat.Dense, trees, maxSamples int, rng *rand.Rand) *iforest {
	rows, _ := x.Dims()
	psi := maxSamples
	if psi <= 0 || psi > rows {
		psi = rows
	}
	if trees <= 0 {
		trees = 100
	}
	depth := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))
	f := &iforest{samples: psi}
	for t := 0; t < trees; t++ {
		idx := rng.Perm(rows)[:psi]
		f.trees = append(f.trees, growTree(x, idx, 0, depth, rng))
	}
	return f
}

func growTree(x *mat.Dense, idx []int, depth, maxDepth int, rng *rand.Rand) *itreeNode {
	if depth >= maxDepth || len(idx) <= 1 {
		return &itreeNode{leaf: true, size: len(idx)}
	}
	_, cols := x.Dims()
	// try features in random order until one varies within the node
	for _, feat := range rng.Perm(cols) {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, i := range idx {
			v := x.At(i, feat)
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !(hi > lo) || math.IsInf(hi-lo, 0) {
			continue
		}
		split := lo + rng.Float64()*(hi-lo)
		var left, right []int
		for _, i := range idx {
			if x.At(i, feat) <= split {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		return &itreeNode{
			feature: feat,
			split:   split,
			left:    growTree(x, left, depth+1, maxDepth, rng),
			right:   growTree(x, right, depth+1, maxDepth, rng),
		}
	}
	return &itreeNode{leaf: true, size: len(idx)}
}

func (f *iforest) score(row []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(t, row, 0)
	}
	mean := total / float64(len(f.trees))
	norm := averagePathLength(f.samples)
	if norm == 0 {
		return 0.5
	}
	return math.Pow(2, -mean/norm)
}

func pathLength(n *itreeNode, row []float64, depth int) float64 {
	for !n.leaf {
		if row[n.feature] <= n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(n.size)
}

// averagePathLength is c(n), the mean path length of an unsuccessful BST search.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
