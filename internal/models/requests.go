package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt accepts a JSON number, a numeric string or null. Browsers post
// form inputs as strings, scripted clients as numbers.
type FlexInt struct {
	Value int
	Set   bool
}

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = FlexInt{}
		return nil
	}
	var raw string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else {
		raw = string(b)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*f = FlexInt{}
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// non-numeric answers are treated as absent, the gate rejects them
		*f = FlexInt{}
		return nil
	}
	*f = FlexInt{Value: n, Set: true}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// RegisterRequest is validated only after the anti-bot gate has passed.
type RegisterRequest struct {
	Email          string  `json:"email" binding:"required"`
	Pseudo         string  `json:"pseudo" binding:"required"`
	Password       string  `json:"password" binding:"required,min=6"`
	MathAnswer     FlexInt `json:"mathAnswer" swaggertype:"integer"`
	ExpectedAnswer FlexInt `json:"expectedAnswer" swaggertype:"integer"`
	Honeypot       string  `json:"honeypot"`
}

type LoginRequest struct {
	Pseudo   string `json:"pseudo"`
	Password string `json:"password"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

type UpdatePseudoRequest struct {
	NewPseudo string `json:"newPseudo" binding:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  UserSummary `json:"user"`
}

type VerifyResponse struct {
	User UserSummary `json:"user"`
}

type PasswordResetResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DevPassword string `json:"devPassword,omitempty"`
	DevMode     bool   `json:"devMode,omitempty"`
}

type CaptchaResponse struct {
	A        int    `json:"a"`
	B        int    `json:"b"`
	Question string `json:"question"`
}

type UserListResponse struct {
	Users       []User `json:"users"`
	CurrentPage int    `json:"currentPage"`
	TotalPages  int    `json:"totalPages"`
	TotalUsers  int    `json:"totalUsers"`
}

type ToggleAdminResponse struct {
	Success bool `json:"success"`
	Admin   bool `json:"admin"`
}

type UpdatePseudoResponse struct {
	Success   bool   `json:"success"`
	NewPseudo string `json:"newPseudo"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error       string `json:"error"`
	MinutesLeft int    `json:"minutesLeft,omitempty"`
}
