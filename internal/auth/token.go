package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type sessionClaims struct {
	Org string `json:"org"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
// The token only references the session; the session store stays authoritative.
type TokenIssuer struct {
	secret []byte
	issuer string
}

func NewTokenIssuer(secret, issuer string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer}
}

// Issue creates a token for s.
func (t *TokenIssuer) Issue(s *Session) (string, error) {
	c := sessionClaims{
		Org: s.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   strconv.FormatInt(s.UserID, 10),
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(t.secret)
}

// Parse verifies a token and returns the session id and user id it references.
func (t *TokenIssuer) Parse(token string, now time.Time) (string, int64, error) {
	var c sessionClaims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	uid, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || c.ID == "" {
		return "", 0, ErrInvalidToken
	}
	return c.ID, uid, nil
}
