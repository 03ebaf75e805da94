package models

// ValidationError represents a request that is malformed before any
// inventory is consulted
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}
