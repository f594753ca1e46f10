package charts

import (
	"math"
	"sort"

	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const maxBins = 1000

// autoBins returns histogram edges picked like numpy's "auto" rule: the
// smaller of the Sturges and Freedman-Diaconis widths, falling back to
// Sturges when the interquartile range is zero.
func autoBins(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	n := float64(len(sorted))
	ptp := hi - lo
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	sturges := ptp / (math.Log2(n) + 1)
	iqr := analysis.Quantile(sorted, 0.75) - analysis.Quantile(sorted, 0.25)
	fd := 2 * iqr * math.Pow(n, -1.0/3)
	width := sturges
	if fd > 0 {
		width = math.Min(fd, sturges)
	}
	bins := 1
	if width > 0 {
		bins = int(math.Ceil((hi - lo) / width))
	}
	bins = max(1, min(bins, maxBins))

	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + (hi-lo)*float64(i)/float64(bins)
	}
	return edges
}

// histogram counts values into the bins defined by edges. The last bin is
// closed on the right.
func histogram(values, edges []float64) []float64 {
	bins := len(edges) - 1
	counts := make([]float64, bins)
	lo, hi := edges[0], edges[bins]
	for _, v := range values {
		i := int((v - lo) / (hi - lo) * float64(bins))
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	return counts
}

// kde evaluates a Gaussian kernel density estimate with Scott's bandwidth at
// points evenly spaced over [lo, hi]. It returns nil when the bandwidth is
// undefined (fewer than two values or zero spread).
func kde(values []float64, lo, hi float64, points int) (xs, ys []float64) {
	n := float64(len(values))
	if len(values) < 2 {
		return nil, nil
	}
	bw := stat.StdDev(values, nil) * math.Pow(n, -0.2)
	if !(bw > 0) || hi <= lo {
		return nil, nil
	}
	xs = make([]float64, points)
	ys = make([]float64, points)
	kernel := distuv.Normal{Mu: 0, Sigma: bw}
	for i := range xs {
		x := lo + (hi-lo)*float64(i)/float64(points-1)
		sum := 0.0
		for _, v := range values {
			sum += kernel.Prob(x - v)
		}
		xs[i], ys[i] = x, sum/n
	}
	return xs, ys
}
