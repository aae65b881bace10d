package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/catalog"
	"github.com/Relaticle/relaticle-sub002/modules/importer/domain/mapping"
	"github.com/Relaticle/relaticle-sub002/modules/importer/infrastructure/tabular"
)

func openCSV(t *testing.T, lines ...string) tabular.Reader {
	t.Helper()
	reader, err := tabular.Open(writeCSV(t, lines...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = reader.Close() })
	return reader
}

func TestMappingService_AutoMapHeadersAndInference(t *testing.T) {
	reader := openCSV(t,
		"Full Name,Company,Work Email,Notes",
		"Jane Cooper,Acme,jane@acme.com,met at expo",
		"John Doe,Globex,john@globex.io,call back",
		"Mary Major,Initech,mary@initech.dev,",
	)
	svc := NewMappingService(catalog.DefaultRegistry(), 20, testLogger())

	set, err := svc.AutoMap(context.Background(), catalog.EntityPerson, reader)
	require.NoError(t, err)

	// "Full Name" is a declared alias of the name field.
	m, ok := set.Get("Full Name")
	require.True(t, ok)
	require.Equal(t, mapping.ColumnMapping{Source: "Full Name", Target: "name"}, m)

	// "Company" matches the relationship and lands on its highest priority
	// non-id matcher.
	m, ok = set.Get("Company")
	require.True(t, ok)
	require.Equal(t, "company", m.Relationship)
	require.Equal(t, "domain_name", m.Target)

	// "Work Email" matches no header alias; its values give it away.
	m, ok = set.Get("Work Email")
	require.True(t, ok)
	require.Equal(t, "emails", m.Target)
	require.False(t, m.IsRelationship())

	// Free text stays unmapped.
	_, ok = set.Get("Notes")
	require.False(t, ok)
}

func TestMappingService_ExactHeaderBeatsInference(t *testing.T) {
	// The Emails column holds junk, but its header is an exact field label;
	// header matching never consults the values.
	reader := openCSV(t,
		"Name,Emails",
		"Jane,not a mail at all",
	)
	svc := NewMappingService(catalog.DefaultRegistry(), 20, testLogger())

	set, err := svc.AutoMap(context.Background(), catalog.EntityPerson, reader)
	require.NoError(t, err)

	m, ok := set.Get("Emails")
	require.True(t, ok)
	require.Equal(t, "emails", m.Target)
}

func TestMappingService_InferenceNeverStealsMappedField(t *testing.T) {
	// Both columns hold emails; the field key wins the first and the second
	// has nowhere left to go.
	reader := openCSV(t,
		"Emails,Backup Mail Column",
		"jane@acme.com,old@acme.com",
		"john@globex.io,older@globex.io",
	)
	svc := NewMappingService(catalog.DefaultRegistry(), 20, testLogger())

	set, err := svc.AutoMap(context.Background(), catalog.EntityPerson, reader)
	require.NoError(t, err)

	m, ok := set.Get("Emails")
	require.True(t, ok)
	require.Equal(t, "emails", m.Target)

	_, ok = set.Get("Backup Mail Column")
	require.False(t, ok)
}

func TestMappingService_UnknownEntity(t *testing.T) {
	reader := openCSV(t, "Name", "Jane")
	svc := NewMappingService(catalog.DefaultRegistry(), 20, testLogger())

	_, err := svc.AutoMap(context.Background(), catalog.EntityType("invoice"), reader)
	require.Error(t, err)
}
