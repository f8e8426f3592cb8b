package models

import "time"

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Pseudo       string    `json:"pseudo"`
	PasswordHash string    `json:"-"` // never serialised
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserSummary is the shape returned alongside a freshly issued token.
type UserSummary struct {
	ID     int    `json:"id"`
	Pseudo string `json:"pseudo"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Pseudo: u.Pseudo, Email: u.Email, Admin: u.Admin}
}
