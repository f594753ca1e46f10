package dataset

import (
	"fmt"
	"log/slog"
	"strings"
)

// LoadOptions controls how a dataset file is read.
type LoadOptions struct {
	// Delimiter for delimited text. If 0, '\t' for .tsv and ',' otherwise.
	Delimiter rune
	// Sheet selects a spreadsheet sheet by name; empty means the first sheet.
	Sheet string
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. Zero values mean plain float syntax.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Logger receives warnings such as encoding fallback. Nil discards them.
	Logger *slog.Logger
}

func (o LoadOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Reader reads one file format into a Frame.
type Reader interface {
	CanRead(path string) bool
	Read(path string, opt LoadOptions) (*Frame, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// Load picks a reader by file name and returns the typed frame.
// Files no reader claims are read as delimited text.
func Load(path string, opt LoadOptions) (*Frame, error) {
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(path, opt)
		}
	}
	return delimitedReader{}.Read(path, opt)
}

func init() {
	Register(delimitedReader{})
	Register(xlsxReader{})
}

// truncate applies MaxRows to raw records and notes the cut.
func truncate(records [][]string, opt LoadOptions) ([][]string, string) {
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		return records[:opt.MaxRows], fmt.Sprintf("processed only %d/%d rows due to MaxRows", opt.MaxRows, len(records))
	}
	return records, ""
}

func hasSuffixFold(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}
