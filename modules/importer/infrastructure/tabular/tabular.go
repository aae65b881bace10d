// Package tabular reads uploaded import files row by row without loading
// them whole. CSV and XLSX share one Reader interface so the pipeline never
// cares which format the operator uploaded.
package tabular

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Row is one data row keyed by header name. Missing trailing cells read as
// empty strings.
type Row map[string]string

// Reader provides random-access reads over a tabular file. Read may be
// called repeatedly with different offsets; implementations re-scan from the
// start, trading speed for bounded memory on large files.
type Reader interface {
	Header() []string
	// Count returns the number of data rows, excluding the header.
	Count() (int, error)
	// Read returns up to limit rows starting at the zero-based data row
	// offset. Fewer rows than limit means the file ended.
	Read(offset, limit int) ([]Row, error)
	Close() error
}

// Open dispatches on the file extension.
func Open(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return OpenCSV(path)
	case ".xlsx":
		return OpenXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(path))
	}
}

func zipRow(header, cells []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if i < len(cells) {
			row[name] = strings.TrimSpace(cells[i])
		} else {
			row[name] = ""
		}
	}
	return row
}
