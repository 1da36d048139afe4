package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// =============================================================================
// JWT SESSIONS
// =============================================================================

var ErrInvalidToken = errors.New("invalid token")

// Claims is the session token payload.
type Claims struct {
	Username    string   `json:"username,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"perms,omitempty"`
	Businesses  []string `json:"businesses,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens with one shared secret.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for u valid for ttl. The back-office login normally
// does this; it is exported for tooling and tests.
func (t *Tokens) Issue(u User, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Username:    u.Username,
		Role:        u.Role,
		Permissions: u.Permissions,
		Businesses:  u.Businesses,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns its session. Expired tokens, other signing
// methods and a non-numeric subject are rejected with ErrInvalidToken.
func (t *Tokens) Verify(raw string) (*Session, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: subject %q is not a user id", ErrInvalidToken, claims.Subject)
	}
	return NewSession(User{
		ID:          id,
		Username:    claims.Username,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		Businesses:  claims.Businesses,
	}), nil
}
