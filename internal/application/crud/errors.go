package crud

import (
	"errors"
	"fmt"
)

// ErrMissingInput is returned when a required DTO, identifier or list
// parameter is absent or malformed.
var ErrMissingInput = errors.New("missing input")

// ValidationError reports input rejected by conversion or persistence.
// It is serialized as the error body of the response.
type ValidationError struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %v", e.Message, e.Fields)
}

func NewValidationError(message string, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// AsValidation unwraps err into a ValidationError when it carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	_, ok := AsValidation(err)
	return ok
}

func missing(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMissingInput}, args...)...)
}
