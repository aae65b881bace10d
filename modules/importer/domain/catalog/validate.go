package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateValue checks a single cell value against the field's ordered
// validation rules and returns a human-readable message for the first
// failing rule. A blank value only fails when the field is required.
func ValidateValue(field ImportField, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if field.IsRequired() {
			return fmt.Errorf("%s is required", field.Label())
		}
		return nil
	}

	for _, rule := range field.Rules() {
		if rule == "required" {
			continue
		}
		if err := validate.Var(trimmed, rule); err != nil {
			return fmt.Errorf("%s is not a valid %s (rule: %s)", value, field.Label(), rule)
		}
	}

	switch field.Type() {
	case FieldTypeEmail:
		for _, candidate := range strings.Split(trimmed, ",") {
			if err := validate.Var(strings.TrimSpace(candidate), "email"); err != nil {
				return fmt.Errorf("%s is not a valid email address", strings.TrimSpace(candidate))
			}
		}
	case FieldTypeURL:
		normalized := trimmed
		if !strings.Contains(normalized, "://") {
			normalized = "https://" + normalized
		}
		if err := validate.Var(normalized, "url"); err != nil {
			return fmt.Errorf("%s is not a valid URL", value)
		}
	}

	return nil
}
