package catalog

// MatchByID is the reserved matcher key for direct record-id matching. When
// mapped and non-blank it short-circuits every other matcher.
const MatchByID = "id"

const (
	priorityID     = 100
	priorityEmail  = 90
	priorityDomain = 90
	priorityPhone  = 80
	priorityName   = 10
)

// DefaultRegistry builds the catalogs for the CRM's importable entities.
// Ranks encode the cross-entity commit order: companies before people before
// opportunities before tasks.
func DefaultRegistry() *Registry {
	return NewRegistry(
		companyCatalog(),
		personCatalog(),
		opportunityCatalog(),
		taskCatalog(),
	)
}

func companyCatalog() *Catalog {
	return New(EntityCompany, 1).
		AddFields(
			NewImportField("name", "Name").
				Required().
				WithRules("required", "max=255").
				WithGuesses("company", "company name", "organization", "account").
				WithExample("Acme Inc."),
			NewImportField("domain_name", "Domain Name").
				WithType(FieldTypeURL).
				WithRules("max=255").
				WithGuesses("domain", "website", "url", "web site").
				WithExample("acme.com"),
			NewImportField("linkedin", "LinkedIn").
				WithType(FieldTypeURL).
				WithRules("max=255").
				WithGuesses("linkedin url", "linkedin profile"),
			NewImportField("phone", "Phone").
				WithType(FieldTypePhone).
				WithRules("max=64").
				WithGuesses("phone number", "telephone", "tel"),
			NewImportField("annual_revenue", "Annual Revenue").
				WithType(FieldTypeCurrency).
				WithGuesses("revenue", "arr").
				AsCustomField(),
		).
		AddMatchables(
			NewMatchableField(MatchByID, "ID", priorityID),
			NewMatchableField("domain_name", "Domain Name", priorityDomain),
			NewMatchableField("name", "Name", priorityName).CreatesNew(),
		)
}

func personCatalog() *Catalog {
	return New(EntityPerson, 2).
		AddFields(
			NewImportField("name", "Name").
				Required().
				WithRules("required", "max=255").
				WithGuesses("full name", "contact", "contact name").
				WithExample("Jane Cooper"),
			NewImportField("emails", "Emails").
				WithType(FieldTypeEmail).
				WithRules("max=512").
				WithGuesses("email", "email address", "e-mail", "mail").
				WithExample("jane@acme.com"),
			NewImportField("phones", "Phones").
				WithType(FieldTypePhone).
				WithRules("max=255").
				WithGuesses("phone", "phone number", "mobile", "telephone"),
			NewImportField("job_title", "Job Title").
				WithRules("max=255").
				WithGuesses("title", "position", "role"),
			NewImportField("linkedin", "LinkedIn").
				WithType(FieldTypeURL).
				WithRules("max=255").
				WithGuesses("linkedin url", "linkedin profile"),
		).
		AddRelationships(
			NewRelationshipField("company", EntityCompany, LinkToOne).
				WithForeignKey("company_id").
				WithGuesses("company", "organization", "account").
				WithMatchables(
					NewMatchableField(MatchByID, "Company ID", priorityID),
					NewMatchableField("domain_name", "Company Domain", priorityDomain),
					NewMatchableField("name", "Company Name", priorityName).CreatesNew(),
				),
		).
		AddMatchables(
			NewMatchableField(MatchByID, "ID", priorityID),
			NewMatchableField("emails", "Emails", priorityEmail),
			NewMatchableField("phones", "Phones", priorityPhone),
			NewMatchableField("name", "Name", priorityName).CreatesNew(),
		)
}

func opportunityCatalog() *Catalog {
	return New(EntityOpportunity, 3).
		AddFields(
			NewImportField("name", "Name").
				Required().
				WithRules("required", "max=255").
				WithGuesses("opportunity", "deal", "deal name").
				WithExample("Acme renewal"),
			NewImportField("amount", "Amount").
				WithType(FieldTypeCurrency).
				WithRules("max=64").
				WithGuesses("value", "deal value", "deal amount"),
			NewImportField("close_date", "Close Date").
				WithType(FieldTypeDate).
				WithGuesses("closing date", "expected close"),
			NewImportField("stage", "Stage").
				WithRules("max=64").
				WithGuesses("pipeline stage", "deal stage"),
		).
		AddRelationships(
			NewRelationshipField("company", EntityCompany, LinkToOne).
				WithForeignKey("company_id").
				WithGuesses("company", "account").
				WithMatchables(
					NewMatchableField(MatchByID, "Company ID", priorityID),
					NewMatchableField("domain_name", "Company Domain", priorityDomain),
					NewMatchableField("name", "Company Name", priorityName).CreatesNew(),
				),
			NewRelationshipField("point_of_contact", EntityPerson, LinkToOne).
				WithForeignKey("point_of_contact_id").
				WithGuesses("contact", "point of contact", "poc").
				WithMatchables(
					NewMatchableField(MatchByID, "Contact ID", priorityID),
					NewMatchableField("emails", "Contact Email", priorityEmail),
					NewMatchableField("name", "Contact Name", priorityName).CreatesNew(),
				),
		).
		AddMatchables(
			NewMatchableField(MatchByID, "ID", priorityID),
			NewMatchableField("name", "Name", priorityName).CreatesNew(),
		)
}

func taskCatalog() *Catalog {
	return New(EntityTask, 4).
		AddFields(
			NewImportField("title", "Title").
				Required().
				WithRules("required", "max=255").
				WithGuesses("task", "task title", "subject"),
			NewImportField("due_date", "Due Date").
				WithType(FieldTypeDate).
				WithGuesses("due", "deadline"),
			NewImportField("status", "Status").
				WithRules("max=64").
				WithGuesses("task status", "state"),
		).
		AddRelationships(
			NewRelationshipField("assignees", EntityPerson, LinkToMany).
				WithGuesses("assignee", "assigned to", "owner").
				WithMatchables(
					NewMatchableField(MatchByID, "Assignee ID", priorityID),
					NewMatchableField("emails", "Assignee Email", priorityEmail),
					NewMatchableField("name", "Assignee Name", priorityName).CreatesNew(),
				),
		).
		AddMatchables(
			NewMatchableField(MatchByID, "ID", priorityID),
			NewMatchableField("title", "Title", priorityName).CreatesNew(),
		)
}
