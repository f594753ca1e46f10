package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type delimitedReader struct{}

func (delimitedReader) CanRead(path string) bool {
	return hasSuffixFold(path, ".csv", ".tsv", ".txt")
}

func (delimitedReader) Read(path string, opt LoadOptions) (*Frame, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	text, enc, err := decode(b)
	if err != nil {
		return nil, err
	}
	if enc != EncodingUTF8 {
		opt.logger().Warn("UTF-8 decoding failed; retrying as ISO-8859-1 (Latin-1)", "file", filepath.Base(path))
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	f, err := parseDelimited(bytes.NewReader(text), filepath.Base(path), delim, opt)
	if err != nil {
		return nil, err
	}
	f.Encoding = enc
	return f, nil
}

// decode returns UTF-8 text, falling back to ISO-8859-1 when the input is not
// valid UTF-8.
func decode(b []byte) ([]byte, string, error) {
	if utf8.Valid(b) {
		return bytes.TrimPrefix(b, utf8BOM), EncodingUTF8, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return nil, "", fmt.Errorf("decode latin-1: %w", err)
	}
	return out, EncodingLatin1, nil
}

func parseDelimited(r io.Reader, name string, delim rune, opt LoadOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Frame{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	ncol := len(header)
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d: expected %d fields, got %d", len(records)+1, ncol, len(rec))
		}
		records = append(records, rec)
	}
	records, note := truncate(records, opt)
	f := build(name, header, records, opt)
	if note != "" {
		f.Notes = append(f.Notes, note)
	}
	return f, nil
}

func sniffDelimiter(path string) rune {
	if hasSuffixFold(path, ".tsv") {
		return '\t'
	}
	return ','
}
