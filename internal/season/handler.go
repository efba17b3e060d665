package season

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
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
	case errors.Is(err, ErrInvalidInput), scope.IsBadRequest(err):
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw(msg, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) Seasons(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	out, err := h.svc.Seasons(r.Context(), id.OrganizationID, k)
	if err != nil {
		h.fail(w, err, "could not load seasons")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

type seasonRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(scope.DateLayout, v)
	if err != nil {
		return nil, ErrInvalidInput
	}
	return &t, nil
}

func (h *Handler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	var req seasonRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	start, err1 := parseDate(req.StartDate)
	end, err2 := parseDate(req.EndDate)
	if err1 != nil || err2 != nil {
		utilities.WriteError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}
	s, err := h.svc.CreateSeason(r.Context(), id.OrganizationID, k, SeasonInput{Name: req.Name, StartDate: start, EndDate: end})
	if err != nil {
		h.fail(w, err, "could not create season")
		return
	}
	h.logger.Infow("season created", "org", id.OrganizationID, "kind", k, "season", s.ID)
	utilities.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	out, err := h.svc.Categories(r.Context(), id.OrganizationID, k, mux.Vars(r)["season_id"])
	if err != nil {
		h.fail(w, err, "could not load categories")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
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
		Name string `json:"name"`
	}
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), id.OrganizationID, k, mux.Vars(r)["season_id"], req.Name)
	if err != nil {
		h.fail(w, err, "could not create category")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, c)
}
