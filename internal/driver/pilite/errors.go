package pilite

import "fmt"

// ValidationError reports an argument outside what the display accepts.
// It is returned before anything is written.
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func newValidationError(field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// TransportError reports a command that was encoded but not delivered
type TransportError struct {
	Command string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("command %q not delivered: %v", e.Command, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
