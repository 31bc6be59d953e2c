// Package auth verifies the bearer tokens that identify feed viewers. Tokens
// are minted by the account service; Issue exists for tests and local
// tooling.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the typ claim of a viewer access token. Refresh tokens
// from the account service carry another type and are refused.
const TokenTypeAccess = "access"

// ViewerTokenTTL is the lifetime of tokens minted by Issue.
const ViewerTokenTTL = 15 * time.Minute

// DefaultLeeway is the clock skew tolerated on exp, iat and nbf.
const DefaultLeeway = 30 * time.Second

var (
	ErrInvalidToken    = errors.New("invalid viewer token")
	ErrExpiredToken    = errors.New("viewer token has expired")
	ErrNotAccessToken  = errors.New("viewer token is not an access token")
	ErrMissingViewerID = errors.New("viewer id is required")
)

// ViewerClaims are the claims of a viewer token. The subject is the viewer id
// that personalises the feed.
type ViewerClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// Verifier checks HS256 viewer tokens. During a key rotation it also accepts
// tokens signed with the previous secret; Issue always signs with the
// current one.
type Verifier struct {
	secrets [][]byte // current first
	leeway  time.Duration
	parser  *jwt.Parser
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithPreviousSecret accepts tokens signed with secret. Empty is ignored.
func WithPreviousSecret(secret string) Option {
	return func(v *Verifier) {
		if secret != "" {
			v.secrets = append(v.secrets, []byte(secret))
		}
	}
}

// WithLeeway overrides DefaultLeeway.
func WithLeeway(leeway time.Duration) Option {
	return func(v *Verifier) { v.leeway = leeway }
}

// NewVerifier returns a Verifier whose current secret is secret.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secrets: [][]byte{[]byte(secret)},
		leeway:  DefaultLeeway,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	return v
}

// ViewerID returns the viewer a bearer token identifies. Errors wrap one of
// ErrInvalidToken, ErrExpiredToken or ErrNotAccessToken.
func (v *Verifier) ViewerID(token string) (string, error) {
	claims, err := v.verify(token)
	if err != nil {
		return "", err
	}
	if claims.Type != TokenTypeAccess {
		return "", fmt.Errorf("%w: typ %q", ErrNotAccessToken, claims.Type)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// verify tries every secret, current first. An expiry reported under any
// secret wins over a bad signature under another.
func (v *Verifier) verify(token string) (*ViewerClaims, error) {
	var expired bool
	for _, secret := range v.secrets {
		claims := &ViewerClaims{}
		_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err == nil {
			return claims, nil
		}
		expired = expired || errors.Is(err, jwt.ErrTokenExpired)
	}
	if expired {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

// Issue signs an access token for viewerID valid for ViewerTokenTTL.
func (v *Verifier) Issue(viewerID string) (string, error) {
	if viewerID == "" {
		return "", ErrMissingViewerID
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, ViewerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   viewerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ViewerTokenTTL)),
		},
		Type: TokenTypeAccess,
	}).SignedString(v.secrets[0])
}
