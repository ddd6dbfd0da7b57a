package models

import "fmt"

// ValidationError is raised for invalid input (bad party size, incomplete
// draft, missing arrived count) before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
