package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ClusterResult summarises a k-means partition of the rows.
type ClusterResult struct {
	K       int
	Columns []string
	// Counts[i] is the number of rows assigned to cluster i.
	Counts []int
	// Centroids are in standardized units, CentroidsOriginal in column units.
	Centroids         [][]float64
	CentroidsOriginal [][]float64
	Inertia           float64
	Iterations        int
	Labels            []int
}

// ClusterRows standardizes the numeric columns of f and partitions the rows
// into opt.Clusters groups.
func ClusterRows(f *dataset.Frame, opt Options) (*ClusterResult, error) {
	k := opt.Clusters
	if k <= 0 {
		return nil, fmt.Errorf("clusters must be positive, got %d", k)
	}
	x, names := numericMatrix(f)
	if x == nil {
		return nil, fmt.Errorf("%w for clustering", ErrInsufficientData)
	}
	rows, cols := x.Dims()
	if rows <= 1 || cols <= 1 || rows < k {
		return nil, fmt.Errorf("%w for clustering: %d rows, %d numeric columns, %d clusters", ErrInsufficientData, rows, cols, k)
	}

	means, scales := standardize(x)
	rng := rand.New(rand.NewSource(opt.Seed))
	centers := seedPlusPlus(x, k, rng)

	tol := opt.Tolerance * meanVariance(x)
	maxIter := opt.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	labels := make([]int, rows)
	iter := 0
	for iter < maxIter {
		iter++
		assign(x, centers, labels)
		next := recenter(x, labels, k)
		shift := 0.0
		for c := range centers {
			d := floats.Distance(centers[c], next[c], 2)
			shift += d * d
		}
		centers = next
		if shift <= tol {
			break
		}
	}
	inertia := assign(x, centers, labels)

	res := &ClusterResult{
		K:          k,
		Columns:    names,
		Counts:     make([]int, k),
		Centroids:  centers,
		Inertia:    inertia,
		Iterations: iter,
		Labels:     labels,
	}
	for _, l := range labels {
		res.Counts[l]++
	}
	res.CentroidsOriginal = make([][]float64, k)
	for c, center := range centers {
		orig := make([]float64, cols)
		for j, v := range center {
			orig[j] = v*scales[j] + means[j]
		}
		res.CentroidsOriginal[c] = orig
	}
	return res, nil
}

// standardize centers and scales x in place to zero mean and unit
// population variance. Constant columns keep a scale of 1.
func standardize(x *mat.Dense) (means, scales []float64) {
	rows, cols := x.Dims()
	means = make([]float64, cols)
	scales = make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		means[j], scales[j] = mean, std
		for i := 0; i < rows; i++ {
			x.Set(i, j, (col[i]-mean)/std)
		}
	}
	return means, scales
}

func meanVariance(x *mat.Dense) float64 {
	rows, cols := x.Dims()
	col := make([]float64, rows)
	total := 0.0
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(cols)
}

// seedPlusPlus picks k initial centers with greedy k-means++: each step draws
// several candidates proportional to squared distance and keeps the one that
// lowers the potential most.
func seedPlusPlus(x *mat.Dense, k int, rng *rand.Rand) [][]float64 {
	rows, _ := x.Dims()
	trials := 2 + int(math.Log(float64(k)))
	centers := make([][]float64, 0, k)
	first := rng.Intn(rows)
	centers = append(centers, cloneRow(x, first))

	closest := make([]float64, rows)
	for i := range closest {
		closest[i] = sqDist(x.RawRowView(i), centers[0])
	}
	for len(centers) < k {
		pot := floats.Sum(closest)
		cum := make([]float64, rows)
		floats.CumSum(cum, closest)

		best, bestPot := -1, math.Inf(1)
		var bestClosest []float64
		for t := 0; t < trials; t++ {
			var cand int
			if pot <= 0 {
				cand = rng.Intn(rows)
			} else {
				r := rng.Float64() * pot
				cand = sort.Search(rows, func(i int) bool { return cum[i] > r })
				if cand >= rows {
					cand = rows - 1
				}
			}
			trial := make([]float64, rows)
			row := x.RawRowView(cand)
			for i := range trial {
				trial[i] = math.Min(closest[i], sqDist(x.RawRowView(i), row))
			}
			if p := floats.Sum(trial); p < bestPot {
				best, bestPot, bestClosest = cand, p, trial
			}
		}
		if best < 0 {
			best, bestClosest = rng.Intn(rows), closest
		}
		centers = append(centers, cloneRow(x, best))
		closest = bestClosest
	}
	return centers
}

// assign sets each row's label to its nearest center and returns the inertia.
func assign(x *mat.Dense, centers [][]float64, labels []int) float64 {
	rows, _ := x.Dims()
	inertia := 0.0
	for i := 0; i < rows; i++ {
		row := x.RawRowView(i)
		best, bestD := 0, math.Inf(1)
		for c, center := range centers {
			if d := sqDist(row, center); d < bestD {
				best, bestD = c, d
			}
		}
		labels[i] = best
		inertia += bestD
	}
	return inertia
}

// recenter computes cluster means. An empty cluster takes the row farthest
// from its current center.
func recenter(x *mat.Dense, labels []int, k int) [][]float64 {
	rows, cols := x.Dims()
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, cols)
	}
	for i := 0; i < rows; i++ {
		floats.Add(sums[labels[i]], x.RawRowView(i))
		counts[labels[i]]++
	}
	for c := range sums {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), sums[c])
		}
	}
	for c := range sums {
		if counts[c] > 0 {
			continue
		}
		far, farD := 0, -1.0
		for i := 0; i < rows; i++ {
			if counts[labels[i]] <= 1 {
				continue
			}
			if d := sqDist(x.RawRowView(i), sums[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		copy(sums[c], x.RawRowView(far))
	}
	return sums
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func cloneRow(x *mat.Dense, i int) []float64 {
	return append([]float64(nil), x.RawRowView(i)...)
}
