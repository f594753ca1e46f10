package analysis

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/KaramelBytes/autolysis-cli/internal/utils"
	"gopkg.in/yaml.v3"
)

type yamlResult struct {
	Name        string         `yaml:"name"`
	Encoding    string         `yaml:"encoding,omitempty"`
	Rows        int            `yaml:"rows"`
	Columns     int            `yaml:"columns"`
	Summary     []yamlColumn   `yaml:"summary"`
	Missing     map[string]int `yaml:"missing_values"`
	Correlation *CorrMatrix    `yaml:"correlation,omitempty"`
	Outliers    *yamlOutliers  `yaml:"outliers,omitempty"`
	Clusters    *yamlClusters  `yaml:"clusters,omitempty"`
	Notes       []string       `yaml:"notes,omitempty"`
}

type yamlColumn struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Count       int      `yaml:"count"`
	Unique      *int     `yaml:"unique,omitempty"`
	Top         *string  `yaml:"top,omitempty"`
	Freq        *int     `yaml:"freq,omitempty"`
	Mean        *float64 `yaml:"mean,omitempty"`
	Std         *float64 `yaml:"std,omitempty"`
	Min         *float64 `yaml:"min,omitempty"`
	Q25         *float64 `yaml:"q25,omitempty"`
	Q50         *float64 `yaml:"q50,omitempty"`
	Q75         *float64 `yaml:"q75,omitempty"`
	Max         *float64 `yaml:"max,omitempty"`
	MADOutliers *int     `yaml:"mad_outliers,omitempty"`
}

type yamlOutliers struct {
	Contamination float64     `yaml:"contamination"`
	Counts        map[int]int `yaml:"counts"`
	Threshold     float64     `yaml:"threshold"`
	Top           []RowScore  `yaml:"top,omitempty"`
	Note          string      `yaml:"note,omitempty"`
}

type yamlClusters struct {
	K                 int         `yaml:"k"`
	Columns           []string    `yaml:"columns"`
	Counts            []int       `yaml:"counts"`
	Centroids         [][]float64 `yaml:"centroids"`
	CentroidsOriginal [][]float64 `yaml:"centroids_original"`
	Inertia           float64     `yaml:"inertia"`
	Iterations        int         `yaml:"iterations"`
}

// WriteYAML persists the analysis (without per-row labels) to path.
func (r *Result) WriteYAML(path string) error {
	data, err := r.YAML()
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}

// YAML marshals the analysis without per-row labels.
func (r *Result) YAML() ([]byte, error) {
	out := yamlResult{
		Name:        r.Name,
		Encoding:    r.Encoding,
		Rows:        r.Rows,
		Columns:     r.Columns,
		Missing:     map[string]int{},
		Correlation: r.Correlation,
		Notes:       r.Notes,
	}
	for _, m := range r.Missing {
		out.Missing[m.Column] = m.Count
	}
	for _, s := range r.Summary {
		out.Summary = append(out.Summary, exportColumn(s))
	}
	if r.Outliers != nil {
		out.Outliers = &yamlOutliers{
			Contamination: r.Outliers.Contamination,
			Counts:        r.Outliers.Counts(),
			Threshold:     r.Outliers.Threshold,
			Top:           r.Outliers.Top,
		}
	}
	if c := r.Clusters; c != nil {
		out.Clusters = &yamlClusters{
			K:                 c.K,
			Columns:           c.Columns,
			Counts:            c.Counts,
			Centroids:         c.Centroids,
			CentroidsOriginal: c.CentroidsOriginal,
			Inertia:           c.Inertia,
			Iterations:        c.Iterations,
		}
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}
	return data, nil
}

func exportColumn(s ColumnSummary) yamlColumn {
	c := yamlColumn{Name: s.Name, Kind: string(s.Kind), Count: s.Count}
	if s.Kind != dataset.KindNumeric {
		c.Unique = &s.Unique
		if s.Count > 0 {
			c.Top, c.Freq = &s.Top, &s.Freq
		}
		return c
	}
	c.Mean, c.Std, c.Min = fptr(s.Mean), fptr(s.Std), fptr(s.Min)
	c.Q25, c.Q50, c.Q75, c.Max = fptr(s.Q25), fptr(s.Q50), fptr(s.Q75), fptr(s.Max)
	if s.OutlierThreshold > 0 {
		c.MADOutliers = &s.OutliersCount
	}
	return c
}

func fptr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
