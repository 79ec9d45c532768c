package contextutils

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("lakshmi@example.com"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail(""))
}

func TestPasswordPolicy_ValidatePassword(t *testing.T) {
	policy := DefaultPasswordPolicy()

	tests := []struct {
		name     string
		password string
		ok       bool
	}{
		{"valid", "Telugu123", true},
		{"too short", "Te1", false},
		{"missing upper", "telugu123", false},
		{"missing lower", "TELUGU123", false},
		{"missing digit", "TeluguABC", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.ValidatePassword(tt.password)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsError(err, ErrWeakPassword))
		})
	}
}

func TestPasswordPolicy_Special(t *testing.T) {
	policy := DefaultPasswordPolicy()
	policy.RequireSpecial = true

	assert.Error(t, policy.ValidatePassword("Telugu123"))
	assert.NoError(t, policy.ValidatePassword("Telugu123!"))
}

func TestRegisterPasswordRule(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterPasswordRule(v, DefaultPasswordPolicy()))

	type req struct {
		Password string `validate:"required,password"`
	}

	assert.NoError(t, v.Struct(req{Password: "Akshara2024"}))
	assert.Error(t, v.Struct(req{Password: "weak"}))
}
