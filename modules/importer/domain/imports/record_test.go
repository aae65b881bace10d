package imports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecord_Candidates(t *testing.T) {
	rec := Record{Fields: map[string]string{
		"emails": "jane@acme.com, , j.cooper@acme.com ",
		"name":   "Jane",
	}}

	require.Equal(t, []string{"jane@acme.com", "j.cooper@acme.com"}, rec.Candidates("emails"))
	require.Equal(t, []string{"Jane"}, rec.Candidates("name"))
	require.Nil(t, rec.Candidates("phones"))
}

func TestSplitCandidates(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, SplitCandidates("a,b"))
	require.Empty(t, SplitCandidates(" , ,"))
	require.Nil(t, SplitCandidates(""))
}
