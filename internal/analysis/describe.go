package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/montanaflynn/stats"
)

// ColumnSummary mirrors one column of a describe(include="all") table.
// Numeric fields are NaN for categorical columns and vice versa.
type ColumnSummary struct {
	Name  string
	Kind  dataset.Kind
	Count int
	// Categorical
	Unique int
	Top    string
	Freq   int
	// Numeric
	Mean float64
	Std  float64
	Min  float64
	Q25  float64
	Q50  float64
	Q75  float64
	Max  float64
	// Robust outliers (MAD), numeric only
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
}

// Describe summarises every column of f.
func Describe(f *dataset.Frame, madThreshold float64) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(f.Columns))
	for _, c := range f.Columns {
		if c.Kind == dataset.KindNumeric {
			out = append(out, describeNumeric(c, madThreshold))
		} else {
			out = append(out, describeCategorical(c))
		}
	}
	return out
}

func describeNumeric(c *dataset.Column, madThreshold float64) ColumnSummary {
	nan := math.NaN()
	s := ColumnSummary{Name: c.Name, Kind: c.Kind, Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	obs := c.Observed()
	s.Count = len(obs)
	if len(obs) == 0 {
		return s
	}
	sorted := make([]float64, len(obs))
	copy(sorted, obs)
	sort.Float64s(sorted)

	s.Mean, _ = stats.Mean(obs)
	if len(obs) > 1 {
		s.Std, _ = stats.StandardDeviationSample(obs)
	}
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = Quantile(sorted, 0.25)
	s.Q50 = Quantile(sorted, 0.5)
	s.Q75 = Quantile(sorted, 0.75)

	if madThreshold > 0 && len(obs) >= 8 {
		median, mad := medianMAD(obs)
		var cnt int
		maxAbsZ := 0.0
		if mad > 0 {
			for _, v := range obs {
				az := math.Abs(0.6745 * (v - median) / mad)
				if az > madThreshold {
					cnt++
				}
				if az > maxAbsZ {
					maxAbsZ = az
				}
			}
		}
		s.OutliersCount = cnt
		s.OutliersMaxAbsZ = maxAbsZ
		s.OutlierThreshold = madThreshold
	}
	return s
}

func describeCategorical(c *dataset.Column) ColumnSummary {
	nan := math.NaN()
	s := ColumnSummary{Name: c.Name, Kind: c.Kind, Mean: nan, Std: nan, Min: nan, Q25: nan, Q50: nan, Q75: nan, Max: nan}
	uniq := map[string]struct{}{}
	for i, v := range c.Str {
		if c.Missing[i] {
			continue
		}
		s.Count++
		uniq[v] = struct{}{}
	}
	s.Unique = len(uniq)
	if top, freq, ok := mode(c); ok {
		s.Top, s.Freq = top, freq
	}
	return s
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = Quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = Quantile(dev, 0.5)
	return
}

// Quantile linearly interpolates between closest ranks of sorted data.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
