// Package charts renders the PNG figures that accompany an analysis.
package charts

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/KaramelBytes/autolysis-cli/internal/utils"
)

const (
	CorrelationFile  = "correlation_matrix.png"
	MissingFile      = "missing_values_heatmap.png"
	ClusterSizesFile = "cluster_sizes.png"
	distSuffix       = "_distribution.png"
)

// Options controls chart rendering.
type Options struct {
	// Width and Height are the image size in pixels.
	Width  int
	Height int
	// ClusterChart adds a bar chart of cluster sizes when clustering ran.
	ClusterChart bool
	// MaxMissingRows bins the missing-value heatmap above this many rows.
	MaxMissingRows int
	Logger         *slog.Logger
}

// DefaultOptions returns the sizes used by a plain run.
func DefaultOptions() Options {
	return Options{Width: 1000, Height: 600, ClusterChart: true, MaxMissingRows: 500}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1000
	}
	if h <= 0 {
		h = 600
	}
	return w, h
}

// Render writes every applicable chart for res into outDir and returns the
// file names, relative to outDir, in rendering order. Distributions and the
// missing-value heatmap are drawn from raw, the frame before imputation.
func Render(raw *dataset.Frame, res *analysis.Result, outDir string, opt Options) ([]string, error) {
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, err
	}
	log := opt.logger()
	var files []string

	if m := res.Correlation; m != nil && len(m.Columns) > 1 {
		if err := correlationHeatmap(m, filepath.Join(outDir, CorrelationFile), opt); err != nil {
			return files, fmt.Errorf("render correlation heatmap: %w", err)
		}
		files = append(files, CorrelationFile)
		log.Debug("chart written", "file", CorrelationFile)
	}

	used := map[string]bool{}
	for _, c := range raw.Numeric() {
		// Observed drops inf cells, which would break the axis range.
		obs := c.Observed()
		if len(obs) == 0 {
			log.Debug("skipping distribution, no finite values", "column", c.Name)
			continue
		}
		name := distributionFileName(c.Name, used)
		if err := distributionChart(c.Name, obs, filepath.Join(outDir, name), opt); err != nil {
			return files, fmt.Errorf("render distribution of %q: %w", c.Name, err)
		}
		files = append(files, name)
		log.Debug("chart written", "file", name)
	}

	if raw.HasMissing() {
		if err := missingHeatmap(raw, filepath.Join(outDir, MissingFile), opt); err != nil {
			return files, fmt.Errorf("render missing-value heatmap: %w", err)
		}
		files = append(files, MissingFile)
		log.Debug("chart written", "file", MissingFile)
	}

	if opt.ClusterChart && res.Clusters != nil {
		if err := clusterSizesChart(res.Clusters, filepath.Join(outDir, ClusterSizesFile), opt); err != nil {
			return files, fmt.Errorf("render cluster sizes: %w", err)
		}
		files = append(files, ClusterSizesFile)
		log.Debug("chart written", "file", ClusterSizesFile)
	}
	return files, nil
}

// distributionFileName maps a column to a unique, filesystem-safe file name.
func distributionFileName(column string, used map[string]bool) string {
	base := utils.SafeFileName(column)
	name := base + distSuffix
	for i := 1; used[name]; i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, distSuffix)
	}
	used[name] = true
	return name
}
