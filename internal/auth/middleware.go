package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// TokenFromRequest returns the bearer token or, failing that, the session cookie value.
func TokenFromRequest(r *http.Request, cookieName string) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// Authenticate attaches the caller's Identity when the request carries a live
// session. Requests without one pass through untouched; the gate decides.
func Authenticate(svc *Service, cookieName string, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := svc.GetSession(r.Context(), token)
			if err != nil {
				logger.Errorw("session lookup failed", "err", err)
			}
			if sess != nil {
				r = r.WithContext(WithIdentity(r.Context(), &Identity{
					UserID:         sess.UserID,
					OrganizationID: sess.OrganizationID,
					SessionID:      sess.ID,
				}))
			}
			next.ServeHTTP(w, r)
		})
	}
}
