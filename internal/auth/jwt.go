package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"todoapp/internal/common"
	"todoapp/internal/config"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Issuer signs and verifies HS256 access/refresh token pairs. It holds no
// state besides its settings.
type Issuer struct {
	secret          []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	rememberMe      time.Duration
	now             func() time.Time
}

func NewIssuer(settings config.AuthSettings, opts ...Option) *Issuer {
	o := buildOptions(opts)
	return &Issuer{
		secret:          settings.JWTSecret,
		accessLifetime:  settings.AccessTokenLifetime,
		refreshLifetime: settings.RefreshTokenLifetime,
		rememberMe:      settings.RememberMeLifetime,
		now:             o.now,
	}
}

// RefreshLifetime is the refresh token lifetime for the given remember-me flag.
func (i *Issuer) RefreshLifetime(rememberMe bool) time.Duration {
	if rememberMe {
		return i.rememberMe
	}
	return i.refreshLifetime
}

func (i *Issuer) Issue(userID uuid.UUID, rememberMe bool) (TokenPair, error) {
	now := i.now()

	access, err := i.sign(userID, AccessToken, now, i.accessLifetime)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := i.sign(userID, RefreshToken, now, i.RefreshLifetime(rememberMe))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(userID uuid.UUID, tokenType TokenType, now time.Time, lifetime time.Duration) (string, error) {
	claims := Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (i *Issuer) VerifyAccess(token string) (*Claims, error) {
	return i.verify(token, AccessToken)
}

func (i *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return i.verify(token, RefreshToken)
}

func (i *Issuer) verify(token string, expected TokenType) (*Claims, error) {
	claims, err := i.parse(token,
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != expected {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// RefreshSubject returns the user a refresh token was issued to, checking the
// signature but not the expiry.
func (i *Issuer) RefreshSubject(token string) (uuid.UUID, error) {
	claims, err := i.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return uuid.Nil, err
	}
	if claims.TokenType != RefreshToken {
		return uuid.Nil, common.ErrInvalidToken
	}
	return claims.UserID, nil
}

func (i *Issuer) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", common.ErrInvalidToken)
		}
		return nil, common.ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == uuid.Nil {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
