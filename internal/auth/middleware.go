package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	TokenID     string
	ExpiresAt   time.Time
	User        *domain.User
	Admin       *domain.AdminUser
}

// ActorID returns the id of whoever the token belongs to.
func (p *Principal) ActorID() string {
	if p.Admin != nil {
		return p.Admin.ID
	}
	if p.User != nil {
		return p.User.ID
	}
	return ""
}

// RevocationList tracks logged-out token ids until they expire.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware validates bearer or cookie tokens and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	users      repository.UserRepository
	admins     repository.AdminRepository
	revoked    RevocationList
	cookieName string
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, admins repository.AdminRepository, revoked RevocationList, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, admins: admins, revoked: revoked, cookieName: cookieName}
}

// TokenFromRequest reads the Authorization header first and falls back to the auth cookie.
func TokenFromRequest(c *fiber.Ctx, cookieName string) (string, error) {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", apperrors.NewUnauthorized("invalid authorization header")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if cookie := c.Cookies(cookieName); cookie != "" {
		return cookie, nil
	}
	return "", apperrors.NewUnauthorized("authentication required")
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := TokenFromRequest(c, m.cookieName)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return apperrors.NewUnauthorized("invalid or expired token")
	}

	ctx := c.UserContext()
	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if revoked {
			return apperrors.NewUnauthorized("token has been revoked")
		}
	}

	principal := &Principal{SubjectType: claims.Subject, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewUnauthorized("user not found")
			}
			return apperrors.MapError(err)
		}
		if !user.CanLogin() {
			return apperrors.NewForbidden("account is not active")
		}
		principal.User = user
	case domain.SubjectTypeAdmin:
		admin, err := m.admins.GetByID(ctx, claims.SubjectID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewUnauthorized("admin not found")
			}
			return apperrors.MapError(err)
		}
		if !admin.IsActive || admin.AccountStatus != domain.AdminStatusActive {
			return apperrors.NewUnauthorized("admin account is not active")
		}
		principal.Admin = admin
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
