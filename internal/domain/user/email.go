package user

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// NormalizeEmail is the stored and looked-up form of a login address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail applies the same rule as the `email` binding tag on login, so any
// address accepted at sign-up can also sign in. Display-name forms such as
// "Anna <anna@x.it>" are rejected.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
