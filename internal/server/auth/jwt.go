// Package auth issues and validates the HS256 session tokens handed to API
// clients: a short-lived access token and a long-lived refresh token.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/neexa/neexa-backend/internal/common"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the JWT payload. Identity fields are only present on access
// tokens minted from a full account.
type Claims struct {
	jwt.RegisteredClaims
	Type      string `json:"typ"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// AccountID returns the subject as an account id.
func (c *Claims) AccountID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.ErrInvalidToken
	}
	return id, nil
}

// AccountClaims is the identity embedded into an access token.
type AccountClaims struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string
}

// TokenPair is what login and registration hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Issuer signs and checks tokens with a single HMAC secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type IssuerOption func(*Issuer)

// WithIssuerClock replaces time.Now, for tests.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Issue mints an access/refresh pair for the account.
func (i *Issuer) Issue(subject AccountClaims) (*TokenPair, error) {
	access, err := i.sign(i.accessClaims(subject))
	if err != nil {
		return nil, err
	}

	refresh, err := i.sign(&Claims{
		RegisteredClaims: i.registered(subject.ID, i.refreshTTL),
		Type:             TypeRefresh,
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints only an access token.
func (i *Issuer) IssueAccess(subject AccountClaims) (string, error) {
	return i.sign(i.accessClaims(subject))
}

// Refresh exchanges a valid refresh token for a new access token that
// carries the subject only.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	claims, err := i.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	id, err := claims.AccountID()
	if err != nil {
		return "", err
	}
	return i.sign(&Claims{
		RegisteredClaims: i.registered(id, i.accessTTL),
		Type:             TypeAccess,
	})
}

// ParseRefresh checks a refresh token and returns its claims.
func (i *Issuer) ParseRefresh(token string) (*Claims, error) {
	claims, err := i.parse(token, TypeRefresh)
	if errors.Is(err, common.ErrTokenExpired) {
		return nil, fmt.Errorf("%w: %w", common.ErrRefreshTokenExpired, err)
	}
	return claims, err
}

// Validate checks an access token and returns the account id it names.
func (i *Issuer) Validate(accessToken string) (int64, error) {
	claims, err := i.ParseAccess(accessToken)
	if err != nil {
		return 0, err
	}
	return claims.AccountID()
}

// ParseAccess checks an access token and returns its claims.
func (i *Issuer) ParseAccess(token string) (*Claims, error) {
	return i.parse(token, TypeAccess)
}

func (i *Issuer) accessClaims(subject AccountClaims) *Claims {
	return &Claims{
		RegisteredClaims: i.registered(subject.ID, i.accessTTL),
		Type:             TypeAccess,
		Email:            subject.Email,
		FirstName:        subject.FirstName,
		LastName:         subject.LastName,
	}
}

func (i *Issuer) registered(id int64, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(id, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) sign(c *Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (i *Issuer) parse(tokenString, typ string) (*Claims, error) {
	if tokenString == "" {
		return nil, common.ErrTokenMissing
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Type != typ {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
