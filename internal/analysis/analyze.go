package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
)

const (
	noteNoNumeric           = "No numeric data for outlier detection."
	noteInsufficientCluster = "Insufficient data for clustering."
)

// Result is the full analysis of one dataset.
type Result struct {
	Name     string
	Encoding string
	Rows     int
	Columns  int
	Summary  []ColumnSummary
	// Missing counts cells missing in the raw data, per column, in frame order.
	Missing     []MissingCount
	Correlation *CorrMatrix
	Outliers    *OutlierResult
	Clusters    *ClusterResult
	// OutlierNote and ClusterNote explain a nil Outliers or Clusters.
	OutlierNote string
	ClusterNote string
	Notes       []string
}

// MissingCount is the number of missing cells in one column.
type MissingCount struct {
	Column string
	Count  int
}

// TotalMissing sums missing cells over all columns.
func (r *Result) TotalMissing() int {
	n := 0
	for _, m := range r.Missing {
		n += m.Count
	}
	return n
}

// Analyze runs the pipeline on a raw frame: missing counts and correlations
// on the raw values, then imputation, descriptive statistics, outlier
// detection and clustering on the imputed values.
func Analyze(f *dataset.Frame, opt Options) (*Result, error) {
	if f == nil || len(f.Columns) == 0 {
		return nil, dataset.ErrNoColumns
	}
	log := opt.logger()
	res := &Result{Name: f.Name, Encoding: f.Encoding, Rows: f.Rows, Columns: len(f.Columns)}
	res.Notes = append(res.Notes, f.Notes...)

	for _, c := range f.Columns {
		res.Missing = append(res.Missing, MissingCount{Column: c.Name, Count: c.MissingCount()})
	}
	res.Correlation = Correlate(f)

	imputed, notes := Impute(f)
	res.Notes = append(res.Notes, notes...)
	log.Debug("imputed missing values", "missing", res.TotalMissing(), "notes", len(notes))

	res.Summary = Describe(imputed, opt.MADThreshold)

	out, err := DetectOutliers(imputed, opt)
	switch {
	case errors.Is(err, ErrInsufficientData):
		res.OutlierNote = noteNoNumeric
	case err != nil:
		return nil, fmt.Errorf("detect outliers: %w", err)
	default:
		res.Outliers = out
		log.Debug("outlier detection done", "outliers", out.Outliers, "inliers", out.Inliers)
	}

	cl, err := ClusterRows(imputed, opt)
	switch {
	case errors.Is(err, ErrInsufficientData):
		res.ClusterNote = noteInsufficientCluster
		log.Debug("clustering skipped", "reason", err)
	case err != nil:
		return nil, fmt.Errorf("cluster rows: %w", err)
	default:
		res.Clusters = cl
		log.Debug("clustering done", "k", cl.K, "iterations", cl.Iterations, "inertia", cl.Inertia)
	}
	return res, nil
}
