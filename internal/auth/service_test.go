package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/users"
	pkgauth "github.com/tecbunny/tecbunny-backend/pkg/auth"
	"github.com/tecbunny/tecbunny-backend/pkg/config"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/mailer"
	"github.com/tecbunny/tecbunny-backend/pkg/security"
)

var testJWTConfig = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "tecbunny-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

type stubUsersRepo struct {
	byEmail   map[string]*models.User
	byID      map[uuid.UUID]*models.User
	createErr error
	lastLogin map[uuid.UUID]time.Time
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{
		byEmail:   map[string]*models.User{},
		byID:      map[uuid.UUID]*models.User{},
		lastLogin: map[uuid.UUID]time.Time{},
	}
}

func (s *stubUsersRepo) WithTx(tx *gorm.DB) users.Repository { return s }

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return nil, errors.New("UNIQUE constraint failed: users.email")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byEmail[user.Email] = user
	s.byID[user.ID] = user
	return user, nil
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUsersRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

func (s *stubUsersRepo) UpdateMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	user, ok := s.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.MFAEnabled = enabled
	return nil
}

func (s *stubUsersRepo) AdminList(ctx context.Context, input users.AdminListInput) (*users.UserList, error) {
	panic("not implemented")
}

type stubSessions struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", errors.New("invalid refresh token")
	}
	newID := uuid.NewString()
	return newID, "refresh-" + newID, nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type memoryOTPStore struct {
	values map[string]string
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{values: map[string]string{}}
}

func (m *memoryOTPStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	return nil
}

func (m *memoryOTPStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (m *memoryOTPStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryOTPStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count := int64(1)
	if raw, ok := m.values[key]; ok {
		count = int64(len(raw)) + 1
	}
	m.values[key] = string(make([]byte, count))
	return count, nil
}

func (m *memoryOTPStore) OTPKey(purpose, subject string) string {
	return "tb:otp:" + purpose + ":" + subject
}

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (c *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

type authHarness struct {
	svc      Service
	users    *stubUsersRepo
	sessions *stubSessions
	otp      *memoryOTPStore
	mail     *captureMailer
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	h := &authHarness{
		users:    newStubUsersRepo(),
		sessions: &stubSessions{},
		otp:      newMemoryOTPStore(),
		mail:     &captureMailer{},
	}
	svc, err := NewService(ServiceParams{
		Users:     h.users,
		Sessions:  h.sessions,
		OTPStore:  h.otp,
		Email:     h.mail,
		JWTConfig: testJWTConfig,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *authHarness) seedUser(t *testing.T, email, password string, mfa bool) *models.User {
	t.Helper()

	hash, err := security.HashPassword(password, config.PasswordConfig{})
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         "Asha",
		Role:         enums.UserRoleCustomer,
		MFAEnabled:   mfa,
		IsActive:     true,
	}
	h.users.byEmail[email] = user
	h.users.byID[user.ID] = user
	return user
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

func extractOTP(t *testing.T, mail *captureMailer) string {
	t.Helper()

	require.NotEmpty(t, mail.sent)
	match := otpPattern.FindStringSubmatch(mail.sent[len(mail.sent)-1].TextBody)
	require.Len(t, match, 2)
	return match[1]
}

func TestRegisterAndLogin(t *testing.T) {
	h := newAuthHarness(t)

	dto, err := h.svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.Equal(t, "asha@example.com", dto.Email)
	require.Equal(t, enums.UserRoleCustomer, dto.Role)

	result, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.False(t, result.MFARequired)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, dto.ID, claims.UserID)
	require.False(t, claims.MFAPending)
	require.Contains(t, h.sessions.generated, claims.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", false)

	_, err := h.svc.Register(context.Background(), RegisterInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestLoginWrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", false)

	_, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "wrong",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	require.Equal(t, invalidCredentialsMessage, typed.Message())
}

func TestLoginWithMFAIssuesPendingToken(t *testing.T) {
	h := newAuthHarness(t)
	user := h.seedUser(t, "asha@example.com", "correct-horse", true)

	result, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.True(t, result.MFARequired)
	require.Empty(t, result.AccessToken)
	require.NotEmpty(t, result.PendingToken)
	require.Empty(t, h.sessions.generated)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, result.PendingToken)
	require.NoError(t, err)
	require.True(t, claims.MFAPending)
	require.Equal(t, user.ID, claims.UserID)

	require.Len(t, h.mail.sent, 1)
	require.Equal(t, []string{"asha@example.com"}, h.mail.sent[0].To)
}

func TestVerifyOTPCompletesLogin(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", true)

	login, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	code := extractOTP(t, h.mail)
	result, err := h.svc.VerifyOTP(context.Background(), login.PendingToken, code)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, result.AccessToken)
	require.NoError(t, err)
	require.False(t, claims.MFAPending)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", true)

	login, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = h.svc.VerifyOTP(context.Background(), login.PendingToken, "000000")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestVerifyOTPTooManyAttempts(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", true)

	login, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	for i := 0; i < otpMaxAttempts; i++ {
		_, err = h.svc.VerifyOTP(context.Background(), login.PendingToken, "000000")
		require.Error(t, err)
	}

	// The real code no longer helps once the attempt budget is burned.
	code := extractOTP(t, h.mail)
	_, err = h.svc.VerifyOTP(context.Background(), login.PendingToken, code)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeRateLimit, typed.Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", false)

	login, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := h.svc.Refresh(context.Background(), RefreshInput{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
}

func TestRefreshRejectsPendingToken(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", true)

	login, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = h.svc.Refresh(context.Background(), RefreshInput{
		AccessToken:  login.PendingToken,
		RefreshToken: "whatever",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "asha@example.com", "correct-horse", false)

	login, err := h.svc.Login(context.Background(), LoginInput{
		Email:    "asha@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	claims, err := pkgauth.ParseAccessToken(testJWTConfig, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(context.Background(), claims.ID))
	require.Equal(t, []string{claims.ID}, h.sessions.revoked)
}
