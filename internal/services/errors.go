package services

import (
	"errors"
	"fmt"
	"time"

	"pokequest/internal/antibot"
)

var (
	// anti-automation, re-exported so handlers depend on services only
	ErrBotDetected = antibot.ErrBotDetected
	ErrWrongAnswer = antibot.ErrWrongAnswer

	ErrDuplicateIdentity  = errors.New("email or pseudo already in use")
	ErrPseudoTaken        = errors.New("pseudo already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password mismatch")
	ErrEmailNotFound      = errors.New("email not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrSelfAdminChange    = errors.New("cannot change own admin flag")
	ErrSelfDelete         = errors.New("cannot delete own account from admin panel")
)

// ValidationError carries a message meant to be shown to the caller as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validation(msg string) error { return &ValidationError{Message: msg} }

// RateLimitError is returned when a limiter refuses the attempt.
type RateLimitError struct {
	Limiter    string
	RetryAfter time.Duration
	Minutes    int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry in %d minute(s)", e.Limiter, e.Minutes)
}

// Limiter names, also used as metric labels.
const (
	RegisterLimiter      = "register"
	PasswordResetLimiter = "password_reset"
)
