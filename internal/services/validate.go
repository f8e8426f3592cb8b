package services

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const msgInvalidRequest = "Requête invalide"

// keyed by "<Struct>.<Field>.<tag>" as reported by the validator
var fieldMessages = map[string]string{
	"RegisterRequest.Email.required":    msgFieldsRequired,
	"RegisterRequest.Pseudo.required":   msgFieldsRequired,
	"RegisterRequest.Password.required": msgFieldsRequired,
	"RegisterRequest.Password.min":      msgPasswordTooShort,

	"PasswordResetRequest.Email.required": msgEmailRequired,

	"UpdatePseudoRequest.NewPseudo.required": msgPseudoEmpty,

	"UpdatePasswordRequest.CurrentPassword.required": msgFieldsRequired,
	"UpdatePasswordRequest.NewPassword.required":     msgFieldsRequired,
	"UpdatePasswordRequest.NewPassword.min":          msgPasswordTooShort,

	"DeleteAccountRequest.Password.required": msgPasswordRequired,
}

// validateRequest runs the binding tags of a request struct through gin's
// validator and reports the first failing field.
func validateRequest(req any) error {
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return ValidationFailure(err)
	}
	return nil
}

// ValidationFailure turns a validator error into a *ValidationError carrying
// the message for the first failing field. Other errors are returned as is.
func ValidationFailure(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	fe := fields[0]
	if msg, ok := fieldMessages[fe.StructNamespace()+"."+fe.Tag()]; ok {
		return validation(msg)
	}
	return validation(msgInvalidRequest)
}

// checkPasswordBytes enforces bcrypt's input limit, which is counted in
// bytes while the min tag counts runes.
func checkPasswordBytes(pw string) error {
	if len(pw) > maxPasswordBytes {
		return validation(msgPasswordTooLong)
	}
	return nil
}
