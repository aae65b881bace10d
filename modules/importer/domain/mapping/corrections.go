package mapping

import "encoding/json"

// Corrections holds operator-entered value overrides gathered during review,
// keyed by field key then original cell value. A correction to the empty
// string marks the value as skipped: rows carrying it import with the cell
// blanked instead of failing validation.
type Corrections struct {
	byField map[string]map[string]string
}

func NewCorrections() *Corrections {
	return &Corrections{byField: make(map[string]map[string]string)}
}

// CorrectValue records a replacement for every occurrence of value in the
// column mapped to fieldKey. Calling it again overwrites the previous
// correction.
func (c *Corrections) CorrectValue(fieldKey, value, corrected string) {
	if c.byField[fieldKey] == nil {
		c.byField[fieldKey] = make(map[string]string)
	}
	c.byField[fieldKey][value] = corrected
}

// SkipValue marks a value as skipped. Skipping an already skipped value is a
// no-op.
func (c *Corrections) SkipValue(fieldKey, value string) {
	c.CorrectValue(fieldKey, value, "")
}

// UnskipValue removes a skip marker, restoring the original value. A
// non-blank correction is left untouched.
func (c *Corrections) UnskipValue(fieldKey, value string) {
	if !c.IsValueSkipped(fieldKey, value) {
		return
	}
	delete(c.byField[fieldKey], value)
	if len(c.byField[fieldKey]) == 0 {
		delete(c.byField, fieldKey)
	}
}

func (c *Corrections) IsValueSkipped(fieldKey, value string) bool {
	corrected, ok := c.lookup(fieldKey, value)
	return ok && corrected == ""
}

// ValueFor resolves the effective cell value after corrections.
func (c *Corrections) ValueFor(fieldKey, value string) string {
	if corrected, ok := c.lookup(fieldKey, value); ok {
		return corrected
	}
	return value
}

func (c *Corrections) lookup(fieldKey, value string) (string, bool) {
	values, ok := c.byField[fieldKey]
	if !ok {
		return "", false
	}
	corrected, ok := values[value]
	return corrected, ok
}

func (c *Corrections) Len() int {
	n := 0
	for _, values := range c.byField {
		n += len(values)
	}
	return n
}

// ForField returns a copy of the corrections recorded for one field.
func (c *Corrections) ForField(fieldKey string) map[string]string {
	values, ok := c.byField[fieldKey]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// Fields returns the field keys that carry at least one correction.
func (c *Corrections) Fields() []string {
	out := make([]string, 0, len(c.byField))
	for k := range c.byField {
		out = append(out, k)
	}
	return out
}

func (c *Corrections) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.byField)
}

func (c *Corrections) UnmarshalJSON(data []byte) error {
	byField := make(map[string]map[string]string)
	if err := json.Unmarshal(data, &byField); err != nil {
		return err
	}
	c.byField = byField
	return nil
}
