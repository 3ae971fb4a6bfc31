package auth

import (
	"github.com/tecbunny/tecbunny-backend/internal/users"
)

// RegisterInput is the storefront sign-up payload.
type RegisterInput struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// LoginInput carries the password challenge.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshInput rotates a session. The expired access token identifies
// the session, the refresh token proves ownership.
type RefreshInput struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResult is the outcome of a login, passcode verification or
// refresh. When MFARequired is set only PendingToken is populated; the
// client must complete the email passcode challenge to obtain a session.
type LoginResult struct {
	AccessToken  string         `json:"access_token,omitempty"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	MFARequired  bool           `json:"mfa_required,omitempty"`
	PendingToken string         `json:"pending_token,omitempty"`
	User         *users.UserDTO `json:"user,omitempty"`
}
