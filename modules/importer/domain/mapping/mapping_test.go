package mapping

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSet_AddRejectsDuplicateSource(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(ColumnMapping{Source: "Company", Target: "name"}))
	require.Error(t, set.Add(ColumnMapping{Source: "Company", Target: "domain_name"}))
}

func TestSet_AddRejectsDuplicateTarget(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(ColumnMapping{Source: "Company", Target: "name"}))
	require.Error(t, set.Add(ColumnMapping{Source: "Organization", Target: "name"}))
}

func TestSet_RelationshipTargetIsDistinct(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(ColumnMapping{Source: "Name", Target: "name"}))
	// The company relationship's name matcher is a different target than the
	// entity's own name field.
	require.NoError(t, set.Add(ColumnMapping{Source: "Company", Target: "name", Relationship: "company"}))
}

func TestSet_AddRejectsBlanks(t *testing.T) {
	set := NewSet()
	require.Error(t, set.Add(ColumnMapping{Source: " ", Target: "name"}))
	require.Error(t, set.Add(ColumnMapping{Source: "Company", Target: ""}))
}

func TestSet_InsertionOrderPreserved(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(ColumnMapping{Source: "B", Target: "name"}))
	require.NoError(t, set.Add(ColumnMapping{Source: "A", Target: "domain_name"}))

	require.Equal(t, []string{"B", "A"}, set.Sources())

	set.Remove("B")
	require.Equal(t, []string{"A"}, set.Sources())
	_, ok := set.Get("B")
	require.False(t, ok)
}

func TestColumnMapping_DerivedKey(t *testing.T) {
	require.Equal(t, "name", ColumnMapping{Source: "Name", Target: "name"}.DerivedKey())
	require.Equal(t, "company.name", ColumnMapping{Source: "Company", Target: "name", Relationship: "company"}.DerivedKey())
}

func TestSet_Lookups(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(ColumnMapping{Source: "Full Name", Target: "name"}))
	require.NoError(t, set.Add(ColumnMapping{Source: "Company", Target: "domain_name", Relationship: "company"}))

	src, ok := set.SourceFor("name")
	require.True(t, ok)
	require.Equal(t, "Full Name", src)

	src, ok = set.SourceForRelationship("company", "domain_name")
	require.True(t, ok)
	require.Equal(t, "Company", src)

	require.Equal(t, map[string]bool{"name": true}, set.MappedFieldKeys())
	require.Equal(t, map[string]bool{"domain_name": true}, set.MappedRelationshipKeys("company"))
}
