// Package auth implements JWT issuance/validation and password hashing,
// generalized from the teacher's internal/auth/auth.go to the multi-tenant
// Organization/User/Membership model (the teacher's version referenced an
// orphaned single users table that no longer existed in its own schema;
// this version is wired to the real identity tables in internal/store).
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harrowgate/sitrep/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the JWT payload: subject is the user id, Org carries the
// currently-selected organization for org-scoped requests.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	OrgID  string `json:"org_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and validates tokens and hashes/checks passwords.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

func (s *Service) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) IssueToken(user *models.User, orgID string, role models.Role) (string, error) {
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		OrgID:  orgID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

var ErrInvalidToken = errors.New("auth: invalid token")

func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type contextKey string

const claimsContextKey contextKey = "sitrep_auth_claims"

// WithClaims stores Claims on ctx — a typed key, unlike the teacher's raw
// string-keyed context.WithValue(ctx, "user_id", ...), since spec.md §9
// requires explicit, unambiguous request-context propagation.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}
