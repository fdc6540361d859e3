package model

import "fmt"

// ValidationError reports caller misconfiguration: mismatched parallel inputs,
// an out-of-domain down, or an unsupported feature combination.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}
