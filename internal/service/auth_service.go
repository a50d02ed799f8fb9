package service

import (
	"errors"
	"fmt"
	"time"

	"mentorhub/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies bearer credentials and turns them into identities.
// Issuing credentials belongs to the login subsystem; IssueToken exists for
// development tooling and tests.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       ttl,
	}
}

// IssueToken signs a credential for identity
func (s *AuthService) IssueToken(identity model.Identity) (*model.TokenResponse, error) {
	if identity.UserID == "" || !identity.Role.Valid() {
		return nil, fmt.Errorf("%w: identity needs a user id and a role", ErrInvalidPayload)
	}

	now := time.Now()
	claims := &model.UserClaims{
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  identity.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		Token:    tokenString,
		Identity: identity,
	}, nil
}

// Validate checks a bearer credential and returns the identity it carries
func (s *AuthService) Validate(tokenString string) (model.Identity, error) {
	if tokenString == "" {
		return model.Identity{}, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, fmt.Errorf("%w: token expired", ErrAuth)
		}
		return model.Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return model.Identity{}, ErrInvalidToken
	}

	return claims.Identity(), nil
}
