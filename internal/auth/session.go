package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidToken    = errors.New("invalid token")

	// Sign-in failures reported by the credential checker.
	ErrBadCredentials = errors.New("invalid credentials")
	ErrLocked         = errors.New("user locked")
	ErrDisabled       = errors.New("user disabled")
)

// Session is a signed-in user's server-side session.
type Session struct {
	ID             string    `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID         int64
	OrganizationID string
	SessionID      string
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the caller set by the authentication middleware.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	if !ok || id == nil || id.OrganizationID == "" {
		return nil, false
	}
	return id, true
}

// RequireIdentity writes 401 and returns false when the request carries no identity.
func RequireIdentity(w http.ResponseWriter, r *http.Request) (*Identity, bool) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		utilities.WriteError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	return id, true
}
