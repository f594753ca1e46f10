package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return hasSuffixFold(path, ".xlsx")
}

// Read loads the selected sheet (first sheet by default) of a workbook.
func (xlsxReader) Read(path string, opt LoadOptions) (*Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return &Frame{Name: filepath.Base(path), Encoding: EncodingUTF8}, nil
	}
	sheet := sheets[0]
	if opt.Sheet != "" {
		sheet = ""
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.Sheet, filepath.Base(path), strings.Join(sheets, ", "))
		}
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &Frame{Name: filepath.Base(path), Encoding: EncodingUTF8}, nil
	}
	header := rows[0]
	records := rows[1:]
	for i, rec := range records {
		if len(rec) > len(header) {
			// excelize trims trailing empty cells but keeps stray values past the header
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", i+1, len(header), len(rec))
		}
	}
	records, note := truncate(records, opt)
	f := build(filepath.Base(path), header, records, opt)
	f.Encoding = EncodingUTF8
	if note != "" {
		f.Notes = append(f.Notes, note)
	}
	return f, nil
}
