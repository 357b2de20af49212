package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fakturio/fakturio/internal/shared"
)

// Service consumes the hosted identity provider's tokens and resolves
// profiles. Credential verification itself happens at the provider;
// this service only checks the tokens it issued.
type Service struct {
	repo   Repository
	secret []byte
}

// NewService constructs a new Service.
func NewService(repo Repository, jwtSecret string) *Service {
	return &Service{repo: repo, secret: []byte(jwtSecret)}
}

// VerifyToken validates an identity provider access token and returns
// the identity it asserts.
func (s *Service) VerifyToken(tokenString string) (*shared.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, shared.ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	return &shared.Identity{UserID: userID, Email: claims.Email}, nil
}

// Profile loads the durable profile for a user.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*shared.Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// RegisterSession persists session metadata in postgres for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session audit record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
