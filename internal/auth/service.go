package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/users"
	pkgauth "github.com/tecbunny/tecbunny-backend/pkg/auth"
	"github.com/tecbunny/tecbunny-backend/pkg/auth/session"
	"github.com/tecbunny/tecbunny-backend/pkg/config"
	dbpkg "github.com/tecbunny/tecbunny-backend/pkg/db"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/mailer"
	"github.com/tecbunny/tecbunny-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type emailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// Service covers registration, the login/MFA handshake, session
// rotation and logout.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	RequestOTP(ctx context.Context, pendingToken string) error
	VerifyOTP(ctx context.Context, pendingToken, code string) (*LoginResult, error)
	Refresh(ctx context.Context, input RefreshInput) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
}

// ServiceParams groups the auth dependencies.
type ServiceParams struct {
	Users       users.Repository
	Sessions    sessionManager
	OTPStore    otpStore
	Email       emailSender
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
}

type service struct {
	users       users.Repository
	sessions    sessionManager
	otpStore    otpStore
	email       emailSender
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService builds the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.OTPStore == nil {
		return nil, fmt.Errorf("otp store required")
	}
	if params.Email == nil {
		return nil, fmt.Errorf("email sender required")
	}
	return &service{
		users:       params.Users,
		sessions:    params.Sessions,
		otpStore:    params.OTPStore,
		email:       params.Email,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordCfg,
		now:         time.Now,
	}, nil
}

// Register creates a customer account. The email is the login handle
// and unique across the platform.
func (s *service) Register(ctx context.Context, input RegisterInput) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        input.Phone,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return users.FromModel(created), nil
}

// Login verifies the password. Accounts with MFA enabled get a pending
// token plus an emailed passcode instead of a session; VerifyOTP
// completes the handshake.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}

	if user.MFAEnabled {
		pending, err := s.mintPendingToken(user, now)
		if err != nil {
			return nil, err
		}
		if err := s.sendOTP(ctx, user); err != nil {
			return nil, err
		}
		return &LoginResult{MFARequired: true, PendingToken: pending}, nil
	}

	return s.mintSession(ctx, user, now)
}

// RequestOTP re-sends the passcode for an in-flight MFA handshake.
func (s *service) RequestOTP(ctx context.Context, pendingToken string) error {
	user, err := s.pendingUser(ctx, pendingToken)
	if err != nil {
		return err
	}
	return s.sendOTP(ctx, user)
}

// VerifyOTP checks the emailed passcode and upgrades the pending token
// to a full session.
func (s *service) VerifyOTP(ctx context.Context, pendingToken, code string) (*LoginResult, error) {
	user, err := s.pendingUser(ctx, pendingToken)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "passcode is required")
	}
	if err := verifyOTP(ctx, s.otpStore, user.ID.String(), code); err != nil {
		return nil, err
	}
	return s.mintSession(ctx, user, s.now().UTC())
}

// Refresh rotates the session identified by the (possibly expired)
// access token. The old refresh token is invalidated either way.
func (s *service) Refresh(ctx context.Context, input RefreshInput) (*LoginResult, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, input.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}
	if claims.MFAPending {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session is awaiting passcode verification")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		User:         users.FromModel(user),
	}, nil
}

// Logout revokes the session behind the access token's jti.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session id missing")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) mintSession(ctx context.Context, user *models.User, now time.Time) (*LoginResult, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

// mintPendingToken issues the short-lived intermediate token. No
// session is stored for it, so it cannot be refreshed or used against
// authenticated routes.
func (s *service) mintPendingToken(user *models.User, now time.Time) (string, error) {
	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:     user.ID,
		Role:       user.Role,
		MFAPending: true,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint pending token")
	}
	return token, nil
}

func (s *service) pendingUser(ctx context.Context, pendingToken string) (*models.User, error) {
	claims, err := pkgauth.ParseAccessToken(s.jwtCfg, pendingToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid pending token")
	}
	if !claims.MFAPending {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token is not awaiting verification")
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive || !user.MFAEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) sendOTP(ctx context.Context, user *models.User) error {
	code, err := issueOTP(ctx, s.otpStore, user.ID.String())
	if err != nil {
		return err
	}
	msg := mailer.Message{
		To:      []string{user.Email},
		Subject: "Your TecBunny verification code",
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not try to sign in, you can ignore this email.\n\nTecBunny",
			user.Name, code, int(otpTTL.Minutes())),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send passcode email")
	}
	return nil
}
