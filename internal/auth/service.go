package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/docstore"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 12 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

type Service struct {
	secret     []byte
	adminEmail string
	adminHash  []byte
	store      docstore.Store
}

// NewService builds the token service. An empty adminHash disables admin login.
// A nil store disables refresh tokens.
func NewService(secret, adminEmail, adminHash string, store docstore.Store) *Service {
	return &Service{
		secret:     []byte(secret),
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		adminHash:  []byte(adminHash),
		store:      store,
	}
}

// AuthenticateAdmin checks the configured administrator credential.
func (s *Service) AuthenticateAdmin(email, password string) error {
	if len(s.adminHash) == 0 || s.adminEmail == "" {
		return fmt.Errorf("admin login disabled: %w", apperrors.ErrInvalidCredentials)
	}
	if strings.ToLower(strings.TrimSpace(email)) != s.adminEmail {
		return apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password)); err != nil {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}

func (s *Service) GenerateTokens(ctx context.Context, id Identity) (TokenResponse, error) {
	access, err := s.signToken(id, "", accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	resp := TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTokenTTL.Seconds()),
	}
	if s.store == nil {
		return resp, nil
	}

	jti := uuid.NewString()
	refresh, err := s.signToken(id, jti, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := s.saveRefreshToken(ctx, jti, id, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}
	resp.RefreshToken = refresh
	return resp, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Identity{}, err
	}
	if s.store == nil || claims.ID == "" {
		return Identity{}, errors.New("refresh token invalid")
	}
	doc, err := s.store.Get(ctx, refreshCollection, claims.ID)
	if err != nil {
		return Identity{}, errors.New("refresh token invalid")
	}
	revoked, _ := docstore.Bool(doc.Data, "revoked")
	expiresAt := docstore.Time(doc.Data, "expires_at")
	if revoked || docstore.String(doc.Data, "user_id") != claims.UserID || time.Now().After(expiresAt) {
		return Identity{}, errors.New("refresh token invalid")
	}
	return claims.Identity(), nil
}

// RevokeRefreshToken marks a refresh token unusable. Unknown tokens are ignored.
func (s *Service) RevokeRefreshToken(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil || s.store == nil || claims.ID == "" {
		return nil
	}
	return s.store.MergeWrite(ctx, refreshCollection, claims.ID, map[string]any{"revoked": true})
}

func (s *Service) ValidateAccessToken(token string) (Identity, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return Identity{}, err
	}
	return claims.Identity(), nil
}

func (s *Service) signToken(id Identity, jti string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   id.UserID,
		Name:     id.Name,
		Role:     id.Role,
		DeviceID: id.DeviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, jti string, id Identity, ttl time.Duration) error {
	return s.store.MergeWrite(ctx, refreshCollection, jti, map[string]any{
		"user_id":    id.UserID,
		"role":       id.Role,
		"device_id":  id.DeviceID,
		"expires_at": time.Now().Add(ttl).UTC(),
		"revoked":    false,
		"created_at": docstore.ServerTimestamp,
	})
}
