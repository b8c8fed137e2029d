package roi

import (
	"fmt"
	"strings"
)

// ValidationError carries every range or presence violation found for a
// parameter set. No calculation is attempted when it is returned.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// MissingInputError is returned by Calculate when required fields are absent.
type MissingInputError struct {
	Fields []string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("missing required calculation inputs: %s", strings.Join(e.Fields, ", "))
}
