package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/events"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// UserPasswordMinLength is the minimum end-user password length.
const UserPasswordMinLength = 8

const verifyEmailTTL = 72 * time.Hour

// AuthService coordinates end-user registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	revoked    auth.RevocationList
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	resetTTL   time.Duration
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Tokens            *auth.TokenManager
	Revocations       auth.RevocationList
	Dispatcher        events.Dispatcher
	Logger            *zap.Logger
	Now               func() time.Time
}

// SignupInput is the signup payload.
type SignupInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Gender    *domain.Gender
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   deps.Tokens,
		revoked:    deps.Revocations,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		bcryptCost: cfg.BcryptCost,
		resetTTL:   time.Duration(cfg.PasswordResetTTLMinutes) * time.Minute,
		now:        clockOrDefault(deps.Now),
	}
}

// Signup creates a new end-user account and signs the first token.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*domain.User, auth.IssuedToken, error) {
	email := domain.NormalizeEmail(input.Email)
	if !validEmail(email) {
		return nil, auth.IssuedToken{}, apperrors.NewValidationError("a valid email is required", map[string]any{"field": "email"})
	}
	if len(input.Password) < UserPasswordMinLength {
		return nil, auth.IssuedToken{}, apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}
	if input.Gender != nil {
		switch *input.Gender {
		case domain.GenderMale, domain.GenderFemale, domain.GenderNonBinary, domain.GenderOther:
		default:
			return nil, auth.IssuedToken{}, apperrors.NewValidationError("unknown gender", map[string]any{"field": "gender"})
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, auth.IssuedToken{}, apperrors.NewConflict("user with this email already exists", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, auth.IssuedToken{}, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, auth.IssuedToken{}, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Gender:       input.Gender,
		IsActive:     true,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, auth.IssuedToken{}, apperrors.NewConflict("user with this email already exists", nil)
		}
		return nil, auth.IssuedToken{}, err
	}

	token, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, auth.IssuedToken{}, err
	}

	verify, err := s.issueOneTimeToken(ctx, user.ID, domain.TokenPurposeVerifyEmail, verifyEmailTTL)
	if err != nil {
		s.logger.Warn("verification token not stored", zap.String("user_id", user.ID), zap.Error(err))
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        events.EventUserSignedUp,
		AggregateID: user.ID,
		Actor:       userActor(user.ID),
		Payload: events.UserSignedUpPayload{
			UserID:      user.ID,
			Email:       user.Email,
			FirstName:   user.FirstName,
			VerifyToken: verify,
		},
	})
	return user, token, nil
}

// Login authenticates an end-user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, auth.IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, auth.IssuedToken{}, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, auth.IssuedToken{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, auth.IssuedToken{}, apperrors.NewUnauthorized("invalid email or password")
	}
	if !user.CanLogin() {
		return nil, auth.IssuedToken{}, apperrors.NewForbidden("account is " + string(user.Status))
	}

	loginAt := s.now()
	user.LastLoginAt = &loginAt
	if err := s.users.Update(ctx, user); err != nil {
		return nil, auth.IssuedToken{}, err
	}

	token, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, auth.IssuedToken{}, err
	}
	return user, token, nil
}

// Logout revokes the token id until the token would have expired.
func (s *AuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revoked == nil || tokenID == "" {
		return nil
	}
	return s.revoked.Revoke(ctx, tokenID, expiresAt.Sub(s.now()))
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ForgotPassword stores a reset token and queues the email. Unknown addresses succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	token, err := s.issueOneTimeToken(ctx, user.ID, domain.TokenPurposePasswordReset, s.resetTTL)
	if err != nil {
		return err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:        events.EventPasswordResetRequest,
		AggregateID: user.ID,
		Actor:       systemActor(),
		Payload: events.PasswordResetRequestedPayload{
			Email:     user.Email,
			FirstName: user.FirstName,
			Token:     token,
			ValidFor:  s.resetTTL,
		},
	})
	return nil
}

// ResetPassword redeems a reset token and stores the new password.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	if len(newPassword) < UserPasswordMinLength {
		return apperrors.NewValidationError("password must be at least 8 characters", map[string]any{"field": "password"})
	}
	token, err := s.redeem(ctx, tokenStr, domain.TokenPurposePasswordReset)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.SubjectID)
	if err != nil {
		return apperrors.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// VerifyEmail redeems a verification token and marks the user verified.
func (s *AuthService) VerifyEmail(ctx context.Context, tokenStr string) (*domain.User, error) {
	token, err := s.redeem(ctx, tokenStr, domain.TokenPurposeVerifyEmail)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, token.SubjectID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	user.IsVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ValidateToken parses a raw token and reports its claims when valid and not revoked.
func (s *AuthService) ValidateToken(ctx context.Context, raw string) (*auth.Claims, error) {
	claims, err := s.tokenMgr.ParseToken(raw)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid or expired token")
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, apperrors.NewUnauthorized("token has been revoked")
		}
	}
	return claims, nil
}

func (s *AuthService) issueOneTimeToken(ctx context.Context, userID string, purpose domain.TokenPurpose, ttl time.Duration) (string, error) {
	value, err := auth.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	token := &domain.PasswordResetToken{
		SubjectType: domain.SubjectTypeUser,
		SubjectID:   userID,
		Purpose:     purpose,
		Token:       value,
		ExpiresAt:   s.now().Add(ttl),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", err
	}
	return value, nil
}

// redeem validates and consumes a one-time token. MarkUsed is conditional so a token
// cannot be redeemed twice even under concurrent requests.
func (s *AuthService) redeem(ctx context.Context, tokenStr string, purpose domain.TokenPurpose) (*domain.PasswordResetToken, error) {
	invalid := apperrors.NewValidationError("invalid or expired token", map[string]any{"field": "token"})
	if strings.TrimSpace(tokenStr) == "" {
		return nil, invalid
	}
	token, err := s.resets.GetByToken(ctx, tokenStr, purpose)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, invalid
		}
		return nil, err
	}
	if !token.Usable(s.now()) {
		return nil, invalid
	}
	if err := s.resets.MarkUsed(ctx, token.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, invalid
		}
		return nil, err
	}
	return token, nil
}
