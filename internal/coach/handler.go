package coach

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, season.ErrInvalidInput), scope.IsBadRequest(err):
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, season.ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw(msg, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	q, err := scope.QueryFromRequest(r, id.OrganizationID)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	out, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load coaches")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	var req struct {
		Input
		SeasonID   string `json:"season_id"`
		CategoryID string `json:"category_id"`
	}
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	hier, err := scope.New(k, req.SeasonID, req.CategoryID)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	c, err := h.svc.Create(r.Context(), id.OrganizationID, hier, req.Input)
	if err != nil {
		h.fail(w, err, "could not create coach")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	if err := h.svc.Delete(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err, "could not delete coach")
		return
	}
	h.logger.Infow("coach deleted", "org", id.OrganizationID, "coach", mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}
