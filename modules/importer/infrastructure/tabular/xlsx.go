package tabular

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads the first sheet of an XLSX workbook through the streaming
// row iterator, so large workbooks never materialize in memory.
type XLSXReader struct {
	file   *excelize.File
	sheet  string
	header []string
	count  int
	hasCnt bool
}

func OpenXLSX(path string) (*XLSXReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		_ = f.Close()
		return nil, fmt.Errorf("missing header")
	}
	header, err := rows.Columns()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	seen := make(map[string]struct{}, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		lower := strings.ToLower(header[i])
		if _, ok := seen[lower]; ok {
			_ = f.Close()
			return nil, fmt.Errorf("duplicate header column: %s", header[i])
		}
		seen[lower] = struct{}{}
	}

	return &XLSXReader{file: f, sheet: sheet, header: header}, nil
}

func (x *XLSXReader) Header() []string {
	return append([]string(nil), x.header...)
}

func (x *XLSXReader) Count() (int, error) {
	if x.hasCnt {
		return x.count, nil
	}
	rows, err := x.file.Rows(x.sheet)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	n := -1 // header
	for rows.Next() {
		n++
	}
	if err := rows.Error(); err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	x.count, x.hasCnt = n, true
	return n, nil
}

func (x *XLSXReader) Read(offset, limit int) ([]Row, error) {
	rows, err := x.file.Rows(x.sheet)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, nil
	}
	for i := 0; i < offset; i++ {
		if !rows.Next() {
			return nil, rows.Error()
		}
	}

	out := make([]Row, 0, limit)
	for len(out) < limit && rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		out = append(out, zipRow(x.header, cells))
	}
	return out, rows.Error()
}

func (x *XLSXReader) Close() error {
	return x.file.Close()
}
