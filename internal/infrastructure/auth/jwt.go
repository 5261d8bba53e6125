package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// TokenPair is returned by login, refresh and store selection
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// GenerateTokenInput describes the session to issue tokens for.
// StoreID is uuid.Nil for a session with no store selected.
type GenerateTokenInput struct {
	UserID      uuid.UUID
	Email       string
	StoreID     uuid.UUID
	Role        string
	Permissions []string
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// JWTService issues and verifies HS256 tokens
type JWTService struct {
	keys   map[TokenType]signingKey
	issuer string
	now    func() time.Time
}

// NewJWTService signs refresh tokens with cfg.Secret when no refresh secret
// is configured.
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}
	return &JWTService{
		keys: map[TokenType]signingKey{
			TokenTypeAccess:  {secret: []byte(cfg.Secret), ttl: cfg.AccessTokenExpiration},
			TokenTypeRefresh: {secret: []byte(refreshSecret), ttl: cfg.RefreshTokenExpiration},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// GenerateTokenPair signs both tokens. Role and permissions go into the
// access token only; refresh looks them up again from the membership.
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	now := s.now()
	claims := Claims{
		UserID: input.UserID.String(),
		Email:  input.Email,
	}
	if input.StoreID != uuid.Nil {
		claims.StoreID = input.StoreID.String()
	}

	refresh, refreshExp, err := s.sign(claims, TokenTypeRefresh, now)
	if err != nil {
		return nil, err
	}
	claims.Role = input.Role
	claims.Permissions = input.Permissions
	access, accessExp, err := s.sign(claims, TokenTypeAccess, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) sign(claims Claims, typ TokenType, now time.Time) (string, time.Time, error) {
	key := s.keys[typ]
	expires := now.Add(key.ttl)
	claims.TokenType = typ
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    s.issuer,
		Subject:   claims.UserID,
		Audience:  jwt.ClaimStrings{s.issuer},
		ExpiresAt: jwt.NewNumericDate(expires),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(key.secret)
	return signed, expires, err
}

func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	return s.parse(token, TokenTypeAccess)
}

func (s *JWTService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.parse(token, TokenTypeRefresh)
}

func (s *JWTService) parse(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.keys[want].secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	}
	if err := claims.check(want); err != nil {
		return nil, err
	}
	return claims, nil
}
