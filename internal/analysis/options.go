package analysis

import (
	"errors"
	"log/slog"
)

// ErrInsufficientData marks a step that could not run on the given frame.
var ErrInsufficientData = errors.New("insufficient data")

// Options controls the analysis pipeline.
type Options struct {
	// Contamination is the expected share of outliers for the isolation forest.
	Contamination float64
	// Trees is the number of isolation trees.
	Trees int
	// MaxSamples caps the subsample drawn per tree.
	MaxSamples int
	// Clusters is k for k-means.
	Clusters int
	// MaxIter bounds Lloyd iterations.
	MaxIter int
	// Tolerance is the relative center-shift tolerance for k-means.
	Tolerance float64
	// Seed drives every random choice so runs are reproducible.
	Seed int64
	// MADThreshold is the robust |z| cut-off for per-column outlier counts.
	MADThreshold float64
	// TopOutliers is how many of the most anomalous rows to report.
	TopOutliers int
	Logger      *slog.Logger
}

// DefaultOptions returns the settings used by a plain run.
func DefaultOptions() Options {
	return Options{
		Contamination: 0.05,
		Trees:         100,
		MaxSamples:    256,
		Clusters:      3,
		MaxIter:       300,
		Tolerance:     1e-4,
		Seed:          42,
		MADThreshold:  3.5,
		TopOutliers:   5,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}
