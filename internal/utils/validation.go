package contextutils

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DefaultPasswordMinLength is used when no policy length is configured
const DefaultPasswordMinLength = 8

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

// PasswordPolicy describes the rules enforced on new passwords
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy requires eight characters with upper, lower and digit
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:    DefaultPasswordMinLength,
		RequireUpper: true,
		RequireLower: true,
		RequireDigit: true,
	}
}

// ValidatePassword checks password against the policy and returns an
// ErrWeakPassword describing the first rule that failed.
func (p PasswordPolicy) ValidatePassword(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}
	if len([]rune(password)) < minLength {
		return WrapErrorf(ErrWeakPassword, "password must be at least %d characters", minLength)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	switch {
	case p.RequireUpper && !hasUpper:
		return WrapError(ErrWeakPassword, "password must contain an uppercase letter")
	case p.RequireLower && !hasLower:
		return WrapError(ErrWeakPassword, "password must contain a lowercase letter")
	case p.RequireDigit && !hasDigit:
		return WrapError(ErrWeakPassword, "password must contain a digit")
	case p.RequireSpecial && !hasSpecial:
		return WrapError(ErrWeakPassword, "password must contain a special character")
	}
	return nil
}

// RegisterPasswordRule installs a `password` tag on v that applies the policy.
func RegisterPasswordRule(v *validator.Validate, policy PasswordPolicy) error {
	return v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return policy.ValidatePassword(fl.Field().String()) == nil
	})
}
