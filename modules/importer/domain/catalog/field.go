package catalog

// EntityType names an importable target entity.
type EntityType string

const (
	EntityCompany     EntityType = "company"
	EntityPerson      EntityType = "person"
	EntityOpportunity EntityType = "opportunity"
	EntityTask        EntityType = "task"
)

// FieldType is the semantic type of a field's values, used by data-type
// inference to suggest fallback mappings for unmatched headers.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeDate     FieldType = "date"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeURL      FieldType = "url"
	FieldTypeNumber   FieldType = "number"
)

// ImportField describes one importable attribute of an entity. It is an
// immutable value object: every With* method returns a modified copy.
type ImportField struct {
	key       string
	label     string
	fieldType FieldType
	required  bool
	rules     []string
	guesses   []string
	example   string
	custom    bool
}

func NewImportField(key, label string) ImportField {
	return ImportField{key: key, label: label, fieldType: FieldTypeText}
}

func (f ImportField) Key() string          { return f.key }
func (f ImportField) Label() string        { return f.label }
func (f ImportField) Type() FieldType      { return f.fieldType }
func (f ImportField) IsRequired() bool     { return f.required }
func (f ImportField) Rules() []string      { return f.rules }
func (f ImportField) Guesses() []string    { return f.guesses }
func (f ImportField) Example() string      { return f.example }
func (f ImportField) IsCustomField() bool  { return f.custom }

func (f ImportField) Required() ImportField {
	f.required = true
	return f
}

// WithRules sets the ordered validation rule descriptors. Each entry is a
// go-playground/validator tag fragment, evaluated in order.
func (f ImportField) WithRules(rules ...string) ImportField {
	f.rules = append([]string(nil), rules...)
	return f
}

func (f ImportField) WithGuesses(guesses ...string) ImportField {
	f.guesses = append([]string(nil), guesses...)
	return f
}

func (f ImportField) WithExample(example string) ImportField {
	f.example = example
	return f
}

func (f ImportField) WithType(t FieldType) ImportField {
	f.fieldType = t
	return f
}

func (f ImportField) AsCustomField() ImportField {
	f.custom = true
	return f
}
