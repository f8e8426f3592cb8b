package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokequest/internal/models"
)

func TestValidateRequest_Messages(t *testing.T) {
	cases := []struct {
		name string
		req  any
		msg  string
	}{
		{"register missing email", models.RegisterRequest{Pseudo: "a", Password: "secret1"}, msgFieldsRequired},
		{"register short password", models.RegisterRequest{Email: "a@b", Pseudo: "a", Password: "12345"}, msgPasswordTooShort},
		{"reset without email", models.PasswordResetRequest{}, msgEmailRequired},
		{"empty pseudo", models.UpdatePseudoRequest{}, msgPseudoEmpty},
		{"missing current password", models.UpdatePasswordRequest{NewPassword: "secret1"}, msgFieldsRequired},
		{"short new password", models.UpdatePasswordRequest{CurrentPassword: "x", NewPassword: "abc"}, msgPasswordTooShort},
		{"delete without password", models.DeleteAccountRequest{}, msgPasswordRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var verr *ValidationError
			require.True(t, errors.As(validateRequest(tc.req), &verr))
			assert.Equal(t, tc.msg, verr.Message)
		})
	}
}

func TestValidateRequest_CountsRunes(t *testing.T) {
	assert.NoError(t, validateRequest(models.UpdatePasswordRequest{CurrentPassword: "x", NewPassword: "éééééé"}))
}

func TestValidationFailure_UnknownRule(t *testing.T) {
	type other struct {
		Name string `binding:"required"`
	}
	err := ValidationFailure(binding.Validator.ValidateStruct(other{}))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, msgInvalidRequest, verr.Message)
}

func TestValidationFailure_PassesOtherErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, ValidationFailure(err))
}

func TestCheckPasswordBytes(t *testing.T) {
	assert.NoError(t, checkPasswordBytes(strings.Repeat("a", 72)))
	// 37 two-byte runes
	assert.Error(t, checkPasswordBytes(strings.Repeat("é", 37)))
}
