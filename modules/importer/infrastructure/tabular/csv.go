package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// CSVReader reads a CSV file with a mandatory header row. Each Read re-opens
// the file and skips to the offset, so memory stays flat regardless of file
// size.
type CSVReader struct {
	path   string
	header []string
	count  int
	hasCnt bool
}

func OpenCSV(path string) (*CSVReader, error) {
	r, closeFn, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(header))
	for _, name := range header {
		lower := strings.ToLower(name)
		if _, ok := seen[lower]; ok {
			return nil, fmt.Errorf("duplicate header column: %s", name)
		}
		seen[lower] = struct{}{}
	}

	return &CSVReader{path: path, header: header}, nil
}

func (c *CSVReader) Header() []string {
	return append([]string(nil), c.header...)
}

func (c *CSVReader) Count() (int, error) {
	if c.hasCnt {
		return c.count, nil
	}
	r, closeFn, err := openCSV(c.path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeFn() }()

	if _, err := r.Read(); err != nil {
		return 0, err
	}
	n := 0
	for {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("line %d: %w", n+2, err)
		}
		n++
	}
	c.count, c.hasCnt = n, true
	return n, nil
}

func (c *CSVReader) Read(offset, limit int) ([]Row, error) {
	r, closeFn, err := openCSV(c.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeFn() }()

	if _, err := r.Read(); err != nil {
		return nil, err
	}
	for i := 0; i < offset; i++ {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
	}

	rows := make([]Row, 0, limit)
	for i := 0; i < limit; i++ {
		cells, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("line %d: %w", offset+i+2, err)
		}
		rows = append(rows, zipRow(c.header, cells))
	}
	return rows, nil
}

func (c *CSVReader) Close() error { return nil }

func openCSV(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := stripUTF8BOM(bufio.NewReader(f))

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	return r, f.Close, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, fmt.Errorf("invalid header encoding")
		}
	}
	return h, nil
}
