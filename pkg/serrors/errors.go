package serrors

import "fmt"

// Base is a coded error shared across modules. Code is stable and
// machine-readable; Hint is optional operator guidance.
type Base struct {
	Code    string
	Message string
	Hint    string
}

func NewError(code, message, hint string) *Base {
	return &Base{Code: code, Message: message, Hint: hint}
}

func (e *Base) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails returns a copy carrying extra context in the message.
func (e *Base) WithDetails(details string) *Base {
	return &Base{
		Code:    e.Code,
		Message: fmt.Sprintf("%s: %s", e.Message, details),
		Hint:    e.Hint,
	}
}

func (e *Base) Is(target error) bool {
	other, ok := target.(*Base)
	if !ok {
		return false
	}
	return other.Code == e.Code
}
