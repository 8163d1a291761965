package booking

import (
	"regexp"
	"strings"

	"github.com/thalesmenz/leelo-app-sub001/internal/masks"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Field keys used in validation results.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldIdentity = "identity"
)

// ValidationResult lists the failing fields. It is valid when empty.
type ValidationResult struct {
	Errors map[string]string `json:"errors,omitempty"`
}

// Valid reports whether every rule passed.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns a *ValidationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Fields: r.Errors}
}

// Validate applies the patient-data rules. Phone and identity are checked
// after stripping every non-digit character.
func Validate(p PatientInput) ValidationResult {
	errs := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		errs[FieldName] = "name is required"
	}
	if !emailPattern.MatchString(strings.TrimSpace(p.Email)) {
		errs[FieldEmail] = "email is invalid"
	}
	if n := len(masks.Digits(p.PhoneDigits)); n != 10 && n != 11 {
		errs[FieldPhone] = "phone must have 10 or 11 digits"
	}
	if len(masks.Digits(p.IDDigits)) != 11 {
		errs[FieldIdentity] = "identity number must have 11 digits"
	}
	return ValidationResult{Errors: errs}
}

// Normalize trims text fields and reduces phone and identity to digits.
func Normalize(p PatientInput) PatientInput {
	return PatientInput{
		Name:        strings.TrimSpace(p.Name),
		Email:       strings.TrimSpace(p.Email),
		PhoneDigits: masks.Digits(p.PhoneDigits),
		IDDigits:    masks.Digits(p.IDDigits),
	}
}
