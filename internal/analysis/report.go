package analysis

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/olekukonko/tablewriter"
)

// Markdown renders a compact report suitable for prompts or standalone docs.
func (r *Result) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	if r.Encoding != "" && r.Encoding != dataset.EncodingUTF8 {
		b.WriteString(fmt.Sprintf("Encoding: %s\n", r.Encoding))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", r.Columns))
	r.WriteSummaryTable(&b)

	b.WriteString("\n[MISSING VALUES]\n")
	if r.TotalMissing() == 0 {
		b.WriteString("No missing values.\n")
	} else {
		for _, m := range r.MissingColumns() {
			pct := 0.0
			if r.Rows > 0 {
				pct = float64(m.Count) * 100 / float64(r.Rows)
			}
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeName(m.Column), m.Count, pct))
		}
	}

	b.WriteString("\n[CORRELATION MATRIX]\n")
	if r.Correlation == nil || len(r.Correlation.Columns) < 2 {
		b.WriteString("Fewer than two numeric columns.\n")
	} else {
		writeCorrTable(&b, r.Correlation)
		if pairs := r.Correlation.TopPairs(10); len(pairs) > 0 {
			b.WriteString("\nStrongest pairs:\n")
			for _, p := range pairs {
				b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
			}
		}
	}

	b.WriteString("\n[OUTLIER DETECTION]\n")
	if r.Outliers == nil {
		b.WriteString(r.OutlierNote + "\n")
	} else {
		o := r.Outliers
		b.WriteString(fmt.Sprintf("Isolation forest, contamination %.2f: %d inliers (label 1), %d outliers (label -1)\n", o.Contamination, o.Inliers, o.Outliers))
		if len(o.Top) > 0 {
			b.WriteString("Most anomalous rows (0-based index: score): ")
			for i, s := range o.Top {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(fmt.Sprintf("%d: %.3f", s.Row, s.Score))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n[CLUSTERING ANALYSIS]\n")
	if r.Clusters == nil {
		b.WriteString(r.ClusterNote + "\n")
	} else {
		c := r.Clusters
		b.WriteString(fmt.Sprintf("K-means on standardized numeric columns, k=%d, inertia %.4g after %d iterations\n", c.K, c.Inertia, c.Iterations))
		for i, n := range c.Counts {
			b.WriteString(fmt.Sprintf("- cluster %d: %d rows\n", i, n))
		}
		b.WriteString("\nCentroids (standardized):\n")
		writeCentroidTable(&b, c.Columns, c.Centroids)
		b.WriteString("\nCentroids (original units):\n")
		writeCentroidTable(&b, c.Columns, c.CentroidsOriginal)
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// WriteSummaryTable writes the descriptive statistics as a Markdown table.
func (r *Result) WriteSummaryTable(w io.Writer) {
	t := markdownTable(w)
	t.SetHeader([]string{"column", "kind", "count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max", "mad outliers"})
	for _, s := range r.Summary {
		row := []string{safeVal(safeName(s.Name)), string(s.Kind), strconv.Itoa(s.Count)}
		if s.Kind == dataset.KindNumeric {
			row = append(row, "", "", "",
				num(s.Mean), num(s.Std), num(s.Min), num(s.Q25), num(s.Q50), num(s.Q75), num(s.Max))
			if s.OutlierThreshold > 0 {
				row = append(row, fmt.Sprintf("%d (|z|>%.1f)", s.OutliersCount, s.OutlierThreshold))
			} else {
				row = append(row, "")
			}
		} else {
			row = append(row, strconv.Itoa(s.Unique), safeVal(clip(s.Top, 40)), strconv.Itoa(s.Freq),
				"", "", "", "", "", "", "", "")
		}
		t.Append(row)
	}
	t.Render()
}

func writeCorrTable(w io.Writer, m *CorrMatrix) {
	t := markdownTable(w)
	t.SetHeader(append([]string{""}, cellNames(m.Columns)...))
	for i, name := range m.Columns {
		row := []string{safeVal(safeName(name))}
		for _, v := range m.Values[i] {
			if math.IsNaN(v) {
				row = append(row, "NaN")
			} else {
				row = append(row, fmt.Sprintf("%.3f", v))
			}
		}
		t.Append(row)
	}
	t.Render()
}

func writeCentroidTable(w io.Writer, cols []string, centers [][]float64) {
	t := markdownTable(w)
	t.SetHeader(append([]string{"cluster"}, cellNames(cols)...))
	for i, c := range centers {
		row := []string{strconv.Itoa(i)}
		for _, v := range c {
			row = append(row, num(v))
		}
		t.Append(row)
	}
	t.Render()
}

func markdownTable(w io.Writer) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	t.SetCenterSeparator("|")
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}

// MissingColumns lists columns with at least one missing cell, most missing first.
func (r *Result) MissingColumns() []MissingCount {
	var out []MissingCount
	for _, m := range r.Missing {
		if m.Count > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4g", v)
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// cellNames escapes column names for use as table cells.
func cellNames(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = safeVal(safeName(c))
	}
	return out
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
