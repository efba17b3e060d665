package user

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

// Handler exposes the staff administration endpoints and the privileged
// account functions.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

// levelsFromKeys parses a section key → level payload. Unknown keys are rejected.
func levelsFromKeys(in map[string]string) (access.Levels, error) {
	var l access.Levels
	for k, v := range in {
		sec, ok := access.SectionByKey(k)
		if !ok {
			return l, fmt.Errorf("%w: unknown section %q", ErrInvalidInput, k)
		}
		l.Set(sec, access.ParseLevel(v))
	}
	return l, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), id.OrganizationID)
	if err != nil {
		h.logger.Errorw("list staff failed", "err", err, "org", id.OrganizationID)
		utilities.WriteError(w, http.StatusInternalServerError, "could not load staff")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

// CreateRequest is the body of POST /staff/users.
type CreateRequest struct {
	FullName    string            `json:"full_name"`
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	Permissions map[string]string `json:"permissions"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid create payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	levels, err := levelsFromKeys(req.Permissions)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	newID, err := h.svc.CreateUser(r.Context(), id.OrganizationID, CreateInput{
		FullName:    req.FullName,
		Email:       req.Email,
		Password:    req.Password,
		Permissions: levels,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			utilities.WriteError(w, http.StatusBadRequest, "email and password are required")
			return
		}
		h.logger.Errorw("create staff failed", "err", err, "org", id.OrganizationID)
		utilities.WriteError(w, http.StatusInternalServerError, "could not create user")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]int64{"id": newID})
}

// PermissionsRequest is the body of PUT /staff/users/{id}/permissions.
type PermissionsRequest struct {
	Permissions map[string]string `json:"permissions"`
}

func (h *Handler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	target, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req PermissionsRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	levels, err := levelsFromKeys(req.Permissions)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SetAccess(r.Context(), id.OrganizationID, target, levels); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			utilities.WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Errorw("set permissions failed", "err", err, "user_id", target)
		utilities.WriteError(w, http.StatusInternalServerError, "could not update permissions")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"id": target, "permissions": levels.ByKey()})
}

// FunctionResult is the response shape of the privileged account functions.
type FunctionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string) {
	utilities.WriteJSON(w, status, FunctionResult{Success: false, Error: msg})
}

type deleteUserRequest struct {
	UserID int64 `json:"user_id"`
}

// DeleteUserFunction handles POST /functions/delete-user.
func (h *Handler) DeleteUserFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	var req deleteUserRequest
	if err := utilities.DecodeJSON(r, &req); err != nil || req.UserID == 0 {
		h.fail(w, http.StatusBadRequest, "user_id is required")
		return
	}
	err := h.svc.DeleteUser(r.Context(), id.OrganizationID, id.UserID, req.UserID)
	switch {
	case err == nil:
		utilities.WriteJSON(w, http.StatusOK, FunctionResult{Success: true})
	case errors.Is(err, ErrSelfDelete):
		h.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound):
		h.fail(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw("delete user failed", "err", err, "user_id", req.UserID)
		h.fail(w, http.StatusInternalServerError, "could not delete user")
	}
}

type updateUserRequest struct {
	UserID   int64   `json:"user_id"`
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UpdateUserFunction handles POST /functions/update-user.
func (h *Handler) UpdateUserFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := utilities.DecodeJSON(r, &req); err != nil || req.UserID == 0 {
		h.fail(w, http.StatusBadRequest, "user_id is required")
		return
	}
	err := h.svc.UpdateUser(r.Context(), id.OrganizationID, req.UserID, UpdateInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		utilities.WriteJSON(w, http.StatusOK, FunctionResult{Success: true})
	case errors.Is(err, ErrInvalidInput):
		h.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound):
		h.fail(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw("update user failed", "err", err, "user_id", req.UserID)
		h.fail(w, http.StatusInternalServerError, "could not update user")
	}
}
