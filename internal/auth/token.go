package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds. A refresh token cannot be used where an access token is
// expected and vice versa; the kind travels as a claim inside the token.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// TokenClaims carries the registered claims plus the token kind.
type TokenClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// TokenCodec signs and verifies self-contained bearer tokens. The
// signing key and per-kind TTLs are fixed for the life of the process.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenCodec(secret []byte, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Issue signs a token of the given kind bound to the subject email.
func (c *TokenCodec) Issue(subject, kind string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(kind))),
		},
		Kind: kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the signature, expiry, and kind of a token and returns
// its subject. Any failure yields an error; it never panics.
func (c *TokenCodec) Verify(tokenString, expectedKind string) (string, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Kind != expectedKind {
		return "", errors.New("unexpected token kind")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("missing subject")
	}
	return claims.Subject, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

func (c *TokenCodec) ttl(kind string) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}
