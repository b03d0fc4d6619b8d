package product

import "fmt"

// ValidationError reports a rejected economic parameter or input value.
// It is returned by the term-sheet factories and by event processors
// before any state is touched.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s=%s: %s", e.Field, e.Value, e.Reason)
}

// Errorf builds a ValidationError with a formatted reason.
func Errorf(field, value, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: fmt.Sprintf(format, args...),
	}
}
