package workflow

import (
	"errors"
	"fmt"
)

// ErrProfilePersist means the authoritative profile write failed.
var ErrProfilePersist = errors.New("profile could not be saved")

// ErrSessionStart means the account and profile exist but no session could be
// issued. The caller should sign in. The result still carries the profile.
var ErrSessionStart = errors.New("registered but session could not be started")

// ValidationError is returned before any external call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
