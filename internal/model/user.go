package model

import (
	"encoding/json"
	"time"
)

// User is the identity returned by /auth/me, /auth/login and /auth/register.
type User struct {
	ID        string     `json:"id"`
	FullName  string     `json:"fullName"`
	Email     string     `json:"email"`
	Avatar    string     `json:"avatar,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts the legacy "_id" field when "id" is absent.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		LegacyID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	if u.ID == "" {
		u.ID = raw.LegacyID
	}
	return nil
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// RegisterInput is the registration form. ConfirmPassword never leaves the client.
type RegisterInput struct {
	FullName        string `json:"fullName" label:"Full name" validate:"required"`
	Email           string `json:"email" label:"Email" validate:"required,email"`
	Password        string `json:"password" label:"Password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" label:"Confirm password" validate:"required,eqfield=Password"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
	Message     string `json:"message,omitempty"`
}
