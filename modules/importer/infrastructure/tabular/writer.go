package tabular

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// ArtifactWriter appends rows to an enriched CSV artifact. The preview
// pipeline writes the sync batch first, then the worker appends each async
// chunk to the same file.
type ArtifactWriter struct {
	path   string
	header []string
}

func NewArtifactWriter(path string, header []string) (*ArtifactWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &ArtifactWriter{path: path, header: header}, nil
}

// OpenArtifactWriter reattaches to an existing artifact for appending.
func OpenArtifactWriter(path string, header []string) (*ArtifactWriter, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &ArtifactWriter{path: path, header: header}, nil
}

// Append writes rows in header order to the end of the artifact. Each call
// opens, writes and closes so concurrent preview readers always see complete
// lines.
func (a *ArtifactWriter) Append(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	record := make([]string, len(a.header))
	for _, row := range rows {
		for i, name := range a.header {
			record[i] = row[name]
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (a *ArtifactWriter) Path() string { return a.path }
