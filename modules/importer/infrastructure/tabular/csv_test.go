package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOpenCSV_HeaderAndCount(t *testing.T) {
	path := writeFile(t, "in.csv", "Name,Website\nAcme,acme.com\nGlobex,globex.io\n")

	r, err := OpenCSV(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	require.Equal(t, []string{"Name", "Website"}, r.Header())

	count, err := r.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestOpenCSV_StripsBOM(t *testing.T) {
	path := writeFile(t, "in.csv", "\xEF\xBB\xBFName\nAcme\n")

	r, err := OpenCSV(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	require.Equal(t, []string{"Name"}, r.Header())
}

func TestOpenCSV_DuplicateHeaderIsFatal(t *testing.T) {
	path := writeFile(t, "in.csv", "Name,name\nAcme,acme\n")

	_, err := OpenCSV(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate header")
}

func TestOpenCSV_MissingHeader(t *testing.T) {
	path := writeFile(t, "in.csv", "")
	_, err := OpenCSV(path)
	require.Error(t, err)
}

func TestCSVReader_ReadByOffset(t *testing.T) {
	path := writeFile(t, "in.csv", "Name\nr1\nr2\nr3\nr4\nr5\n")

	r, err := OpenCSV(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	rows, err := r.Read(0, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "r1", rows[0]["Name"])

	rows, err = r.Read(3, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "r4", rows[0]["Name"])
	require.Equal(t, "r5", rows[1]["Name"])

	rows, err = r.Read(99, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCSVReader_ShortRowsReadBlank(t *testing.T) {
	path := writeFile(t, "in.csv", "Name,Website\nAcme\n")

	r, err := OpenCSV(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	rows, err := r.Read(0, 1)
	require.NoError(t, err)
	require.Equal(t, "Acme", rows[0]["Name"])
	require.Equal(t, "", rows[0]["Website"])
}

func TestOpen_DispatchesOnExtension(t *testing.T) {
	path := writeFile(t, "in.csv", "Name\nAcme\n")

	r, err := Open(path)
	require.NoError(t, err)
	_ = r.Close()

	_, err = Open(filepath.Join(t.TempDir(), "in.txt"))
	require.Error(t, err)
}

func TestArtifactWriter_AppendAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "enriched.csv")
	header := []string{"name", "domain_name"}

	w, err := NewArtifactWriter(path, header)
	require.NoError(t, err)
	require.NoError(t, w.Append([]Row{{"name": "Acme", "domain_name": "acme.com"}}))

	// A later job reattaches and appends.
	w2, err := OpenArtifactWriter(path, header)
	require.NoError(t, err)
	require.NoError(t, w2.Append([]Row{{"name": "Globex", "domain_name": "globex.io"}}))

	r, err := OpenCSV(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	require.Equal(t, header, r.Header())
	rows, err := r.Read(0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Globex", rows[1]["name"])
}

func TestOpenArtifactWriter_MissingFile(t *testing.T) {
	_, err := OpenArtifactWriter(filepath.Join(t.TempDir(), "missing.csv"), []string{"name"})
	require.Error(t, err)
}
