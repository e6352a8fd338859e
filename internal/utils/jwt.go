package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and verifying signed tokens

	"github.com/iliyamo/finapp/internal/model"
)

// TokenKind selects which secret and lifetime a token uses.
type TokenKind int

const (
	AccessKind TokenKind = iota
	RefreshKind
)

func (k TokenKind) String() string {
	if k == RefreshKind {
		return "refresh"
	}
	return "access"
}

// Verification failures.  Callers must treat every one of them as a plain
// rejection; they are distinguished only for logging.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenInvalidSignature = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// Claims is the payload carried by both access and refresh tokens.
type Claims struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a serialized JWT together with its expiry.
type IssuedToken struct {
	Token string
	Exp   time.Time
}

// TokenCodec signs and verifies access and refresh tokens.  The two kinds
// use distinct secrets so that one leaked secret cannot forge the other
// kind of token.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the clock used for iat/exp and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec builds a codec from the two HMAC secrets and lifetimes.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessTTL returns the lifetime of access tokens.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the lifetime of refresh tokens.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for p.
func (c *TokenCodec) IssueAccess(p model.Principal) (IssuedToken, error) {
	return c.issue(p, c.accessSecret, c.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for p.
func (c *TokenCodec) IssueRefresh(p model.Principal) (IssuedToken, error) {
	return c.issue(p, c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) issue(p model.Principal, secret []byte, ttl time.Duration) (IssuedToken, error) {
	now := c.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		ID:   p.ID,
		Name: p.Name,
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Token: signed, Exp: exp}, nil
}

// Verify checks the signature and expiry of raw against the secret of the
// given kind and returns the principal it carries.  Only HS256 is
// accepted and an exp claim is mandatory.
func (c *TokenCodec) Verify(raw string, kind TokenKind) (model.Principal, error) {
	secret := c.accessSecret
	if kind == RefreshKind {
		secret = c.refreshSecret
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return model.Principal{}, ErrTokenInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return model.Principal{}, ErrTokenExpired
		default:
			return model.Principal{}, ErrTokenMalformed
		}
	}
	if !tok.Valid || claims.ID == "" || !claims.Role.Valid() {
		return model.Principal{}, ErrTokenMalformed
	}
	return model.Principal{ID: claims.ID, Name: claims.Name, Role: claims.Role}, nil
}
