package dataset

import (
	"errors"
	"math"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// ErrNoColumns is returned when an operation needs at least one column.
var ErrNoColumns = errors.New("dataset has no columns")

// Column holds one column of a frame. Num is populated for numeric columns
// (NaN where missing), Str for categorical columns ("" where missing).
type Column struct {
	Name    string
	Kind    Kind
	Num     []float64
	Str     []string
	Missing []bool
}

// Frame is an in-memory table with typed columns.
type Frame struct {
	Name     string
	Encoding string
	Rows     int
	Columns  []*Column
	// Notes collects non-fatal remarks made while loading.
	Notes []string
}

// Numeric returns numeric columns in frame order.
func (f *Frame) Numeric() []*Column {
	return f.byKind(KindNumeric)
}

// Categorical returns non-numeric columns in frame order.
func (f *Frame) Categorical() []*Column {
	return f.byKind(KindCategorical)
}

func (f *Frame) byKind(k Kind) []*Column {
	var out []*Column
	for _, c := range f.Columns {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Column looks up a column by exact name.
func (f *Frame) Column(name string) (*Column, bool) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// HasMissing reports whether any cell in the frame is missing.
func (f *Frame) HasMissing() bool {
	for _, c := range f.Columns {
		if c.MissingCount() > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Name: f.Name, Encoding: f.Encoding, Rows: f.Rows}
	out.Notes = append([]string(nil), f.Notes...)
	out.Columns = make([]*Column, len(f.Columns))
	for i, c := range f.Columns {
		out.Columns[i] = c.Clone()
	}
	return out
}

// MissingCount returns the number of missing cells in the column.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Observed returns the non-missing finite values of the column. Infinite
// cells are left out.
func (c *Column) Observed() []float64 {
	out := make([]float64, 0, len(c.Num))
	for i, v := range c.Num {
		if !c.Missing[i] && IsFinite(v) {
			out = append(out, v)
		}
	}
	return out
}

// NonFinite counts non-missing cells holding NaN or an infinity.
func (c *Column) NonFinite() int {
	n := 0
	for i, v := range c.Num {
		if !c.Missing[i] && !IsFinite(v) {
			n++
		}
	}
	return n
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Num != nil {
		out.Num = append([]float64(nil), c.Num...)
	}
	if c.Str != nil {
		out.Str = append([]string(nil), c.Str...)
	}
	out.Missing = append([]bool(nil), c.Missing...)
	return out
}
