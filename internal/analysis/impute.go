package analysis

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/montanaflynn/stats"
)

// Impute returns a copy of f with missing numeric cells set to the column
// mean and missing categorical cells set to the column mode. Non-finite
// numeric cells (inf, -inf, nan) count as missing. Columns with no observed
// value are dropped and reported in the returned notes.
func Impute(f *dataset.Frame) (*dataset.Frame, []string) {
	out := &dataset.Frame{Name: f.Name, Encoding: f.Encoding, Rows: f.Rows}
	out.Notes = append([]string(nil), f.Notes...)
	var notes []string
	for _, c := range f.Columns {
		nc := c.Clone()
		if c.Kind == dataset.KindNumeric {
			if n := maskNonFinite(nc); n > 0 {
				notes = append(notes, fmt.Sprintf("column %q: %d non-finite value(s) treated as missing", c.Name, n))
			}
		}
		if f.Rows > 0 && nc.MissingCount() == f.Rows {
			notes = append(notes, fmt.Sprintf("column %q has no observed values and was excluded after imputation", c.Name))
			continue
		}
		switch c.Kind {
		case dataset.KindNumeric:
			fillMean(nc)
		default:
			fillMode(nc)
		}
		out.Columns = append(out.Columns, nc)
	}
	return out, notes
}

// maskNonFinite marks NaN and infinite cells as missing and returns how many
// it marked.
func maskNonFinite(c *dataset.Column) int {
	n := 0
	for i, v := range c.Num {
		if !c.Missing[i] && !dataset.IsFinite(v) {
			c.Missing[i] = true
			n++
		}
	}
	return n
}

func fillMean(c *dataset.Column) {
	obs := c.Observed()
	if len(obs) == len(c.Num) {
		return
	}
	mean, err := stats.Mean(obs)
	if err != nil {
		return
	}
	for i := range c.Num {
		if c.Missing[i] {
			c.Num[i] = mean
			c.Missing[i] = false
		}
	}
}

func fillMode(c *dataset.Column) {
	top, _, ok := mode(c)
	if !ok {
		return
	}
	for i := range c.Str {
		if c.Missing[i] {
			c.Str[i] = top
			c.Missing[i] = false
		}
	}
}

// mode returns the most frequent observed value of a categorical column.
// Ties resolve to the smallest value.
func mode(c *dataset.Column) (string, int, bool) {
	counts := map[string]int{}
	for i, s := range c.Str {
		if !c.Missing[i] {
			counts[s]++
		}
	}
	if len(counts) == 0 {
		return "", 0, false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best, counts[best], true
}
