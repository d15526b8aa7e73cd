package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	apperrors "paycore/internal/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validator collects field errors
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError records the first error for a field
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns nil when valid, otherwise an INVALID_REQUEST error listing
// every field in name order.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + v.Errors[f]
	}
	return apperrors.ErrInvalidRequest.WithDetail("%s", strings.Join(parts, "; "))
}

// Required checks that a string is not blank
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "must not be empty")
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len([]rune(value)) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// After checks that t is strictly after ref
func (v *Validator) After(field string, t, ref time.Time) {
	v.Check(t.After(ref), field, "must be in the future")
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	v.Check(len(password) >= MinPasswordLength, field, fmt.Sprintf("must be at least %d characters long", MinPasswordLength))
	v.Check(len(password) <= MaxPasswordLength, field, fmt.Sprintf("must not be more than %d characters long", MaxPasswordLength))

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	v.Check(hasUpper && hasLower && hasNumber, field, "must mix upper case, lower case and digits")
}
