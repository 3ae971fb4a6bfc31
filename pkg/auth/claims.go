package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
// MFAPending marks the intermediate token issued after password
// verification but before the email passcode is checked.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       enums.UserRole
	MFAPending bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID      `json:"user_id"`
	Role       enums.UserRole `json:"role"`
	MFAPending bool           `json:"mfa_pending,omitempty"`
	jwt.RegisteredClaims
}
