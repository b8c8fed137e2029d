package scenario

import "errors"

var (
	// ErrNotFound is returned when a scenario id does not exist.
	ErrNotFound = errors.New("scenario not found")
	// ErrNameRequired is returned when saving without a non-blank name.
	ErrNameRequired = errors.New("scenario name is required")
)
