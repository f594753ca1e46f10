package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// naTokens are the cell values treated as missing, in addition to "".
var naTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-nan": {}, "-NaN": {},
	"NULL": {}, "null": {}, "None": {}, "<NA>": {}, "#N/A": {}, "#NA": {},
	"#N/A N/A": {}, "-1.#IND": {}, "1.#IND": {}, "-1.#QNAN": {}, "1.#QNAN": {},
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	_, ok := naTokens[s]
	return ok
}

// build turns a header and raw records into a typed frame.
func build(name string, header []string, records [][]string, opt LoadOptions) *Frame {
	names := uniqueNames(header)
	f := &Frame{Name: name, Rows: len(records)}
	for j, n := range names {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = rec[j]
			}
		}
		f.Columns = append(f.Columns, inferColumn(n, raw, opt))
	}
	return f
}

// inferColumn decides whether raw values form a numeric or categorical column.
func inferColumn(name string, raw []string, opt LoadOptions) *Column {
	c := &Column{Name: name, Missing: make([]bool, len(raw))}
	nums := make([]float64, len(raw))
	// a header-only column carries no evidence of being numeric
	numeric := len(raw) > 0
	for i, v := range raw {
		if IsMissing(v) {
			c.Missing[i] = true
			nums[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(v, opt)
		if !ok {
			numeric = false
			continue
		}
		nums[i] = x
	}
	if numeric {
		c.Kind = KindNumeric
		c.Num = nums
		return c
	}
	c.Kind = KindCategorical
	c.Str = make([]string, len(raw))
	for i, v := range raw {
		if !c.Missing[i] {
			c.Str[i] = strings.TrimSpace(v)
		}
	}
	return c
}

// uniqueNames fills blank header names and de-duplicates repeated ones
// as name, name.1, name.2 ...
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		n := strings.TrimSpace(h)
		if n == "" {
			n = fmt.Sprintf("Unnamed: %d", i)
		}
		base := n
		for {
			if _, dup := seen[n]; !dup {
				break
			}
			seen[base]++
			n = fmt.Sprintf("%s.%d", base, seen[base])
		}
		seen[n] = 0
		out[i] = n
	}
	return out
}

// parseNumeric parses a decimal number. With no separators configured it
// accepts plain float syntax only; otherwise the configured locale is applied.
func parseNumeric(s string, opt LoadOptions) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	// strconv accepts hex floats and underscores; plain CSV numbers never use them
	if strings.ContainsAny(raw, "xX_pP") {
		return 0, false
	}
	if opt.DecimalSeparator == 0 && opt.ThousandsSeparator == 0 {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FromRecords builds a frame from a header and raw string records, inferring
// column kinds the same way Load does.
func FromRecords(name string, header []string, records [][]string) *Frame {
	f := build(name, header, records, LoadOptions{})
	f.Encoding = EncodingUTF8
	return f
}
