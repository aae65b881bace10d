package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindMatchingHeader_ExactKeyAndLabel(t *testing.T) {
	field := NewImportField("domain_name", "Domain Name")
	headers := []string{"Industry", "domain_name", "Website"}
	require.Equal(t, "domain_name", FindMatchingHeader(headers, field))

	headers = []string{"Industry", "Domain Name", "Website"}
	require.Equal(t, "Domain Name", FindMatchingHeader(headers, field))
}

func TestFindMatchingHeader_GuessAlias(t *testing.T) {
	field := NewImportField("domain_name", "Domain Name").
		WithGuesses("domain", "website", "url")

	require.Equal(t, "WEBSITE", FindMatchingHeader([]string{"Name", "WEBSITE"}, field))
}

func TestFindMatchingHeader_ExactBeatsGuess(t *testing.T) {
	field := NewImportField("name", "Name").WithGuesses("company")

	// "Name" matches the label exactly even though "Company" appears first.
	require.Equal(t, "Name", FindMatchingHeader([]string{"Company", "Name"}, field))
}

func TestFindMatchingHeader_FirstMatchWinsInHeaderOrder(t *testing.T) {
	field := NewImportField("phone", "Phone").WithGuesses("telephone", "mobile")

	require.Equal(t, "Mobile", FindMatchingHeader([]string{"Mobile", "Telephone"}, field))
}

func TestFindMatchingHeader_NoMatchReturnsEmpty(t *testing.T) {
	field := NewImportField("phone", "Phone").WithGuesses("telephone")
	require.Equal(t, "", FindMatchingHeader([]string{"Name", "Email"}, field))
}

func TestFindMatchingHeader_Deterministic(t *testing.T) {
	headers := []string{"Company", "Email Address", "Phone Number"}
	fieldA := NewImportField("name", "Name").WithGuesses("company")
	fieldB := NewImportField("emails", "Emails").WithGuesses("email address")

	first := FindMatchingHeader(headers, fieldA)
	// Matching an unrelated field in between must not change the result.
	_ = FindMatchingHeader(headers, fieldB)
	_ = FindMatchingHeader(headers, fieldB)
	require.Equal(t, first, FindMatchingHeader(headers, fieldA))
	require.Equal(t, "Company", first)
}

func TestFindMatchingHeaderForRelationship(t *testing.T) {
	rel := NewRelationshipField("company", EntityCompany, LinkToOne).
		WithGuesses("organization", "account")

	require.Equal(t, "Account", FindMatchingHeaderForRelationship([]string{"Name", "Account"}, rel))
	require.Equal(t, "company", FindMatchingHeaderForRelationship([]string{"company"}, rel))
	require.Equal(t, "", FindMatchingHeaderForRelationship([]string{"Name"}, rel))
}

func TestSuggestFields_AdvisoryRanking(t *testing.T) {
	fields := []ImportField{
		NewImportField("name", "Name"),
		NewImportField("domain_name", "Domain Name"),
		NewImportField("phone", "Phone"),
	}
	suggestions := SuggestFields("domain", fields)
	require.NotEmpty(t, suggestions)
	require.Equal(t, "domain_name", suggestions[0])
}
