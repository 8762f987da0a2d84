package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired = errors.New("security: token expired")
	ErrInvalidToken = errors.New("security: invalid token")
)

// Claims carried by access and refresh tokens.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Token is a signed token and its lifetime.
type Token struct {
	Value     string
	TTL       time.Duration
	ExpiresAt time.Time
}

// Tokens issues and verifies HMAC signed JWTs.
type Tokens struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type TokensOption func(*Tokens)

// WithClock replaces the clock used when issuing tokens.
func WithClock(now func() time.Time) TokensOption {
	return func(t *Tokens) {
		t.now = now
	}
}

// NewTokens creates an issuer for one of HS256, HS384 or HS512.
func NewTokens(secret, algorithm string, accessTTL, refreshTTL time.Duration, opts ...TokensOption) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("security: empty jwt secret")
	}
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("security: unsupported signing algorithm %q", algorithm)
	}
	t := &Tokens{
		secret:     []byte(secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Tokens) AccessTTL() time.Duration  { return t.accessTTL }
func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

// IssueAccess signs a short lived token for userID.
func (t *Tokens) IssueAccess(userID string) (Token, error) {
	return t.issue(userID, t.accessTTL)
}

// IssueRefresh signs a long lived token for userID. Every refresh token gets a
// unique id so two tokens issued in the same second never collide.
func (t *Tokens) IssueRefresh(userID string) (Token, error) {
	return t.issue(userID, t.refreshTTL)
}

func (t *Tokens) issue(userID string, ttl time.Duration) (Token, error) {
	now := t.now()
	expires := now.Add(ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, fmt.Errorf("security: signing token: %w", err)
	}
	return Token{Value: signed, TTL: ttl, ExpiresAt: expires}, nil
}

// Verify checks signature, algorithm and expiry. Expired tokens return
// ErrTokenExpired, every other failure ErrInvalidToken.
func (t *Tokens) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{t.method.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
