package service_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

type memRevocations struct {
	mu  sync.Mutex
	ids map[string]time.Duration
}

func (r *memRevocations) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		r.ids = map[string]time.Duration{}
	}
	r.ids[tokenID] = ttl
	return nil
}

func (r *memRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[tokenID]
	return ok, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		AdminTokenTTLMinutes:    30,
		CookieName:              "datifyy_token",
		PasswordResetTTLMinutes: 60,
		BcryptCost:              bcrypt.MinCost,
		AdminMaxLoginAttempts:   3,
		AdminLockMinutes:        30,
		AdminPasswordExpiryDays: 90,
	}
}

type authFixture struct {
	svc     *service.AuthService
	users   *memUsers
	resets  *memResets
	tokens  *auth.TokenManager
	revoked *memRevocations
	events  *recorder
}

func newAuthFixture() *authFixture {
	cfg := testAuthConfig()
	f := &authFixture{
		users:   newMemUsers(),
		resets:  newMemResets(),
		tokens:  auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, cfg.AdminTokenTTLMinutes),
		revoked: &memRevocations{},
		events:  &recorder{},
	}
	f.svc = service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          f.users,
		PasswordResetRepo: f.resets,
		Tokens:            f.tokens,
		Revocations:       f.revoked,
		Dispatcher:        f.events,
	})
	return f
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).HTTPStatus
}

func TestSignupCreatesUserAndToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, token, err := f.svc.Signup(ctx, service.SignupInput{
		Email:     "  Priya@Example.com ",
		Password:  "correct-horse",
		FirstName: "Priya",
	})
	require.NoError(t, err)
	require.Equal(t, "priya@example.com", user.Email)
	require.NotEqual(t, "correct-horse", user.PasswordHash)
	require.Equal(t, domain.UserStatusActive, user.Status)
	require.NotEmpty(t, token.Token)

	claims, err := f.tokens.ParseToken(token.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.SubjectID)
	require.Equal(t, domain.SubjectTypeUser, claims.Subject)
	require.Equal(t, []events.EventType{events.EventUserSignedUp}, f.events.types())
	require.NotEmpty(t, f.resets.latest(domain.TokenPurposeVerifyEmail))
}

func TestSignupRejectsDuplicateAndWeakInput(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, _, err := f.svc.Signup(ctx, service.SignupInput{Email: "a@example.com", Password: "password1"})
	require.NoError(t, err)

	_, _, err = f.svc.Signup(ctx, service.SignupInput{Email: "A@example.com", Password: "password1"})
	require.Equal(t, http.StatusConflict, statusOf(t, err))
	require.Contains(t, err.Error(), "already exists")

	_, _, err = f.svc.Signup(ctx, service.SignupInput{Email: "b@example.com", Password: "short"})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	_, _, err = f.svc.Signup(ctx, service.SignupInput{Email: "not-an-email", Password: "password1"})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	bogus := domain.Gender("robot")
	_, _, err = f.svc.Signup(ctx, service.SignupInput{Email: "c@example.com", Password: "password1", Gender: &bogus})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func TestLogin(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, _, err := f.svc.Signup(ctx, service.SignupInput{Email: "sam@example.com", Password: "password1"})
	require.NoError(t, err)

	user, token, err := f.svc.Login(ctx, "sam@example.com", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
	require.NotNil(t, user.LastLoginAt)

	_, _, err = f.svc.Login(ctx, "sam@example.com", "wrong-password")
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, _, err = f.svc.Login(ctx, "nobody@example.com", "password1")
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestLoginRefusesBannedUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user, _, err := f.svc.Signup(ctx, service.SignupInput{Email: "ban@example.com", Password: "password1"})
	require.NoError(t, err)

	user.Status = domain.UserStatusBanned
	require.NoError(t, f.users.Update(ctx, user))

	_, _, err = f.svc.Login(ctx, "ban@example.com", "password1")
	require.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, token, err := f.svc.Signup(ctx, service.SignupInput{Email: "out@example.com", Password: "password1"})
	require.NoError(t, err)

	claims, err := f.svc.ValidateToken(ctx, token.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.ID, token.ExpiresAt))
	_, err = f.svc.ValidateToken(ctx, token.Token)
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, err = f.svc.ValidateToken(ctx, "garbage")
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	_, _, err := f.svc.Signup(ctx, service.SignupInput{Email: "reset@example.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "ghost@example.com"))
	require.Empty(t, f.resets.latest(domain.TokenPurposePasswordReset))

	require.NoError(t, f.svc.ForgotPassword(ctx, "reset@example.com"))
	token := f.resets.latest(domain.TokenPurposePasswordReset)
	require.NotEmpty(t, token)
	require.Contains(t, f.events.types(), events.EventPasswordResetRequest)

	err = f.svc.ResetPassword(ctx, token, "short")
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	require.NoError(t, f.svc.ResetPassword(ctx, token, "brand-new-pass"))
	err = f.svc.ResetPassword(ctx, token, "another-pass")
	require.Equal(t, http.StatusBadRequest, statusOf(t, err), "token is single use")

	_, _, err = f.svc.Login(ctx, "reset@example.com", "brand-new-pass")
	require.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user, _, err := f.svc.Signup(ctx, service.SignupInput{Email: "verify@example.com", Password: "password1"})
	require.NoError(t, err)
	require.False(t, user.IsVerified)

	verified, err := f.svc.VerifyEmail(ctx, f.resets.latest(domain.TokenPurposeVerifyEmail))
	require.NoError(t, err)
	require.True(t, verified.IsVerified)

	_, err = f.svc.VerifyEmail(ctx, "")
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))
}

func newAdminAuthFixture(t *testing.T, now func() time.Time) (*service.AdminAuthService, *memAdmins, *domain.AdminUser) {
	t.Helper()
	cfg := testAuthConfig()
	admins := newMemAdmins()
	hash, err := auth.HashPassword("admin-password-1", bcrypt.MinCost)
	require.NoError(t, err)
	admin := &domain.AdminUser{
		Email:           "ops@datifyy.com",
		PasswordHash:    hash,
		FirstName:       "Ops",
		PermissionLevel: domain.AdminLevelAdmin,
		AccountStatus:   domain.AdminStatusActive,
		IsActive:        true,
		Timezone:        "UTC",
	}
	require.NoError(t, admins.Create(context.Background(), admin))

	svc := service.NewAdminAuthService(cfg, service.AdminAuthDependencies{
		AdminRepo: admins,
		Tokens:    auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, cfg.AdminTokenTTLMinutes),
		Now:       now,
	})
	return svc, admins, admin
}

func TestAdminLoginLocksAfterRepeatedFailures(t *testing.T) {
	clk := newClock()
	svc, admins, admin := newAdminAuthFixture(t, clk.Now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Login(ctx, service.AdminLoginInput{Email: admin.Email, Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	}
	_, err := svc.Login(ctx, service.AdminLoginInput{Email: admin.Email, Password: "nope"})
	require.Equal(t, http.StatusLocked, statusOf(t, err))

	_, err = svc.Login(ctx, service.AdminLoginInput{Email: admin.Email, Password: "admin-password-1"})
	require.Equal(t, http.StatusLocked, statusOf(t, err), "correct password is refused while locked")

	clk.Advance(31 * time.Minute)
	result, err := svc.Login(ctx, service.AdminLoginInput{Email: admin.Email, Password: "admin-password-1", IP: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token.Token)

	stored, err := admins.GetByID(ctx, admin.ID)
	require.NoError(t, err)
	require.Zero(t, stored.FailedLoginAttempts)
	require.Equal(t, domain.AdminStatusActive, stored.AccountStatus)
	require.Equal(t, "10.0.0.1", *stored.LastLoginIP)
	require.Equal(t, 1, stored.LoginCount)
}

func TestAdminChangePassword(t *testing.T) {
	clk := newClock()
	svc, _, admin := newAdminAuthFixture(t, clk.Now)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, admin.ID, "admin-password-1", "short")
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	err = svc.ChangePassword(ctx, admin.ID, "wrong-password-1", "a-much-longer-password")
	require.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	require.NoError(t, svc.ChangePassword(ctx, admin.ID, "admin-password-1", "a-much-longer-password"))

	result, err := svc.Login(ctx, service.AdminLoginInput{Email: admin.Email, Password: "a-much-longer-password"})
	require.NoError(t, err)
	require.False(t, result.PasswordExpired)
	require.False(t, result.PasswordExpiringSoon)
	require.Equal(t, clk.Now().AddDate(0, 0, 90), *result.Admin.PasswordExpiryDate)
}

func TestAdminUpdateProfileValidatesTimezone(t *testing.T) {
	svc, _, admin := newAdminAuthFixture(t, nil)
	ctx := context.Background()

	bad := "Mars/Olympus"
	_, err := svc.UpdateProfile(ctx, admin.ID, service.AdminProfileInput{Timezone: &bad})
	require.Equal(t, http.StatusBadRequest, statusOf(t, err))

	tz, dept := "Asia/Kolkata", " Trust & Safety "
	updated, err := svc.UpdateProfile(ctx, admin.ID, service.AdminProfileInput{Timezone: &tz, Department: &dept})
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", updated.Timezone)
	require.Equal(t, "Trust & Safety", *updated.Department)
}
