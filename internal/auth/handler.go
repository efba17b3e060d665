package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/permission"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

// PermissionLoader is the part of the permission resolver the handlers use.
type PermissionLoader interface {
	Load(ctx context.Context, userID int64) permission.Snapshot
}

type Handler struct {
	svc         *Service
	perms       PermissionLoader
	cookieName  string
	secure      bool
	loadTimeout time.Duration
	logger      *zap.SugaredLogger
}

func NewHandler(svc *Service, perms PermissionLoader, cfg Config, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{
		svc:         svc,
		perms:       perms,
		cookieName:  cfg.CookieName,
		secure:      cfg.SecureCookie,
		loadTimeout: 3 * time.Second,
		logger:      logger,
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// permissionView is the JSON shape of a snapshot.
type permissionView struct {
	Status  string            `json:"status"`
	Levels  map[string]string `json:"levels,omitempty"`
	Landing string            `json:"landing,omitempty"`
}

func viewOf(s permission.Snapshot) permissionView {
	v := permissionView{Status: s.Status.String()}
	if s.IsLoading() {
		return v
	}
	v.Levels = make(map[string]string)
	for k, lvl := range s.Permissions.Levels.ByKey() {
		v.Levels[k] = lvl.String()
	}
	v.Landing = s.Landing()
	return v
}

func (h *Handler) snapshot(ctx context.Context, userID int64) permission.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, h.loadTimeout)
	defer cancel()
	return h.perms.Load(ctx, userID)
}

// SignIn handles POST /club-api/auth/sign-in.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, token, err := h.svc.SignInWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrBadCredentials):
			utilities.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, ErrLocked):
			utilities.WriteError(w, http.StatusLocked, "account temporarily locked")
		case errors.Is(err, ErrDisabled):
			utilities.WriteError(w, http.StatusForbidden, "account disabled")
		default:
			h.logger.Errorw("sign-in failed", "err", err)
			utilities.WriteError(w, http.StatusInternalServerError, "sign-in failed")
		}
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	utilities.WriteJSON(w, http.StatusOK, map[string]any{
		"token":       token,
		"expires_at":  sess.ExpiresAt,
		"session":     sess,
		"permissions": viewOf(h.snapshot(r.Context(), sess.UserID)),
	})
}

// SignOut handles POST /club-api/auth/sign-out.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r, h.cookieName)
	if err := h.svc.SignOut(r.Context(), token); err != nil {
		h.logger.Errorw("sign-out failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "sign-out failed")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /club-api/auth/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.GetSession(r.Context(), TokenFromRequest(r, h.cookieName))
	if err != nil {
		h.logger.Errorw("session lookup failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if sess == nil {
		utilities.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{
		"session":     sess,
		"permissions": viewOf(h.snapshot(r.Context(), sess.UserID)),
	})
}
