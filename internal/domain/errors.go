// internal/domain/errors.go
package domain

import "fmt"

// ValidationError ошибка бизнес-валидации, привязанная к конкретному полю.
// На уровне HTTP превращается в 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создает ValidationError для поля.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
