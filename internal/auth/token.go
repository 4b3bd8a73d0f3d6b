package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens for users and admins.
type TokenManager struct {
	secret   []byte
	userTTL  time.Duration
	adminTTL time.Duration
	now      func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, userTTLMinutes, adminTTLMinutes int) *TokenManager {
	if userTTLMinutes <= 0 {
		userTTLMinutes = 60
	}
	if adminTTLMinutes <= 0 {
		adminTTLMinutes = userTTLMinutes
	}
	return &TokenManager{
		secret:   []byte(secret),
		userTTL:  time.Duration(userTTLMinutes) * time.Minute,
		adminTTL: time.Duration(adminTTLMinutes) * time.Minute,
		now:      time.Now,
	}
}

// Claims describes JWT payload.
type Claims struct {
	SubjectID       string                       `json:"uid"`
	Subject         domain.SubjectType           `json:"subject"`
	PermissionLevel *domain.AdminPermissionLevel `json:"level,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token with the identifiers needed to revoke it.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// GenerateToken builds and signs a JWT for the subject. Admin tokens carry the permission level.
func (tm *TokenManager) GenerateToken(subjectID string, subject domain.SubjectType, level *domain.AdminPermissionLevel) (IssuedToken, error) {
	now := tm.now()
	ttl := tm.userTTL
	if subject == domain.SubjectTypeAdmin {
		ttl = tm.adminTTL
	}
	expiresAt := now.Add(ttl)
	claims := &Claims{
		SubjectID:       subjectID,
		Subject:         subject,
		PermissionLevel: level,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: tokenString, ID: claims.ID, ExpiresAt: expiresAt}, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.SubjectID == "" || claims.ID == "" {
		return nil, errors.New("token missing subject")
	}
	return claims, nil
}
