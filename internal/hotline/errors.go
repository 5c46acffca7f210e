package hotline

import "fmt"

// ClientInputError means a webhook arrived without a value it must carry,
// typically a correlation identifier. The request is rejected, never retried.
type ClientInputError struct {
	Field string
}

func (e *ClientInputError) Error() string {
	return fmt.Sprintf("hotline: missing required %s", e.Field)
}

func missing(field string) error {
	return &ClientInputError{Field: field}
}
