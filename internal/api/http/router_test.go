package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/datifyy/datifyy-service/internal/api/http/handlers"
	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
	"github.com/datifyy/datifyy-service/internal/service"
)

type stubUsers struct {
	mu   sync.Mutex
	byID map[string]*domain.User
}

func (s *stubUsers) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == user.Email {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	user.ID = uuid.NewString()
	cp := *user
	s.byID[user.ID] = &cp
	return nil
}

func (s *stubUsers) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.byID[user.ID] = &cp
	return nil
}

func (s *stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUsers) List(context.Context, repository.UserFilter) ([]domain.User, int, error) {
	return nil, 0, nil
}

func (s *stubUsers) ChangeStatus(context.Context, *domain.UserStatusChange) error { return nil }

func (s *stubUsers) StatusHistory(context.Context, string) ([]domain.UserStatusChange, error) {
	return nil, nil
}

type stubResets struct{}

func (stubResets) Create(_ context.Context, token *domain.PasswordResetToken) error {
	token.ID = uuid.NewString()
	return nil
}

func (stubResets) GetByToken(context.Context, string, domain.TokenPurpose) (*domain.PasswordResetToken, error) {
	return nil, pgx.ErrNoRows
}

func (stubResets) MarkUsed(context.Context, string) error { return nil }

type stubAdmins struct {
	byID map[string]*domain.AdminUser
}

func (s *stubAdmins) Create(context.Context, *domain.AdminUser) error { return nil }

func (s *stubAdmins) Update(context.Context, *domain.AdminUser) error { return nil }

func (s *stubAdmins) GetByID(_ context.Context, id string) (*domain.AdminUser, error) {
	if a, ok := s.byID[id]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubAdmins) GetByEmail(context.Context, string) (*domain.AdminUser, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubAdmins) List(context.Context, repository.AdminFilter) ([]domain.AdminUser, int, error) {
	return nil, 0, nil
}

func (s *stubAdmins) CountLocked(context.Context) (int, error) { return 0, nil }

type stubWaitlist struct {
	mu      sync.Mutex
	entries []domain.WaitlistEntry
}

func (s *stubWaitlist) Create(_ context.Context, entry *domain.WaitlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uuid.NewString()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *stubWaitlist) GetByID(context.Context, string) (*domain.WaitlistEntry, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubWaitlist) GetByEmail(_ context.Context, email string) (*domain.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].Email == email {
			e := s.entries[i]
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *stubWaitlist) UpdateStatus(context.Context, *domain.WaitlistEntry, domain.WaitlistStatus) error {
	return nil
}

func (s *stubWaitlist) Delete(context.Context, string) error { return pgx.ErrNoRows }

func (s *stubWaitlist) List(_ context.Context, filter repository.WaitlistFilter) ([]domain.WaitlistEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := len(s.entries)
	if filter.Offset >= total {
		return []domain.WaitlistEntry{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return append([]domain.WaitlistEntry{}, s.entries[filter.Offset:end]...), total, nil
}

func (s *stubWaitlist) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *stubWaitlist) CountByStatus(context.Context) (map[domain.WaitlistStatus]int, error) {
	return map[domain.WaitlistStatus]int{}, nil
}

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	admins *stubAdmins
}

// newTestServer wires the public auth and waitlist routes over stubs. Handlers for
// the remaining routes stay nil since these tests never reach them.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.AuthConfig{
		JWTSecret:               "test-secret",
		AccessTokenTTLMinutes:   60,
		CookieName:              "datifyy_token",
		PasswordResetTTLMinutes: 60,
		BcryptCost:              bcrypt.MinCost,
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes, cfg.AccessTokenTTLMinutes)
	users := &stubUsers{byID: map[string]*domain.User{}}
	admins := &stubAdmins{byID: map[string]*domain.AdminUser{}}

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:          users,
		PasswordResetRepo: stubResets{},
		Tokens:            tokens,
	})
	waitlist := service.NewWaitlistService(service.WaitlistDependencies{WaitlistRepo: &stubWaitlist{}})

	logger := zap.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, nil)})
	RegisterMiddlewares(app, logger, nil, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("datifyy", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService, cfg),
		Waitlist:       handlers.NewWaitlistHandler(waitlist),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users, admins, nil, cfg.CookieName),
	})
	return &testServer{app: app, tokens: tokens, admins: admins}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func signupBody(email string) map[string]any {
	return map[string]any{"email": email, "password": "correct-horse", "first_name": "Ana"}
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, fiber.MethodPost, "/api/v1/auth/signup", "", signupBody("ana@example.com"))
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)
	require.Equal(t, "ana@example.com", user["email"])
	require.NotContains(t, user, "password")
	require.NotContains(t, user, "password_hash")
	require.NotEmpty(t, data["auth"].(map[string]any)["token"])

	status, body = srv.do(t, fiber.MethodPost, "/api/v1/auth/signup", "", signupBody("ana@example.com"))
	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, false, body["success"])
	require.Contains(t, body["message"], "already exists")
	require.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])

	status, body = srv.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "ana@example.com", "password": "correct-horse",
	})
	require.Equal(t, fiber.StatusOK, status)
	token := body["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)

	status, body = srv.do(t, fiber.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "ana@example.com", body["data"].(map[string]any)["email"])

	status, _ = srv.do(t, fiber.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"email": "ana@example.com", "password": "wrong-horse",
	})
	require.Equal(t, fiber.StatusUnauthorized, status)
}

func TestSignupRejectsMissingPassword(t *testing.T) {
	srv := newTestServer(t)
	status, body := srv.do(t, fiber.MethodPost, "/api/v1/auth/signup", "", map[string]any{"email": "ana@example.com"})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	srv := newTestServer(t)

	status, _ := srv.do(t, fiber.MethodGet, "/api/v1/auth/me", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = srv.do(t, fiber.MethodGet, "/api/v1/auth/me", "not-a-jwt", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, body := srv.do(t, fiber.MethodGet, "/api/v1/nowhere", "", nil)
	require.Equal(t, fiber.StatusNotFound, status)
	require.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestWaitlistPagination(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 5; i++ {
		status, _ := srv.do(t, fiber.MethodPost, "/api/v1/waitlist", "", map[string]any{
			"name": "Guest", "email": fmt.Sprintf("guest%d@example.com", i),
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	status, body := srv.do(t, fiber.MethodGet, "/api/v1/waitlist/count", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.EqualValues(t, 5, body["data"].(map[string]any)["count"])

	viewer := &domain.AdminUser{
		ID:              uuid.NewString(),
		Email:           "viewer@datifyy.com",
		PermissionLevel: domain.AdminLevelViewer,
		AccountStatus:   domain.AdminStatusActive,
		IsActive:        true,
	}
	srv.admins.byID[viewer.ID] = viewer
	issued, err := srv.tokens.GenerateToken(viewer.ID, domain.SubjectTypeAdmin, &viewer.PermissionLevel)
	require.NoError(t, err)

	status, body = srv.do(t, fiber.MethodGet, "/api/v1/admin/waitlist?page=2&limit=2", issued.Token, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, body["data"], 2)
	meta := body["metadata"].(map[string]any)
	require.EqualValues(t, 2, meta["page"])
	require.EqualValues(t, 2, meta["limit"])
	require.EqualValues(t, 5, meta["total"])
	require.EqualValues(t, 3, meta["total_pages"])

	status, body = srv.do(t, fiber.MethodGet, "/api/v1/admin/users", issued.Token, nil)
	require.Equal(t, fiber.StatusForbidden, status, "viewers cannot moderate users")
	require.True(t, strings.Contains(body["message"].(string), "moderator"))
}
