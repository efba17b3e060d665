package physical

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/export"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

// Handler serves the physical section. The tree comes from the kind query
// parameter.
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
	case errors.Is(err, ErrInvalidInput), errors.Is(err, export.ErrUnknownFormat), scope.IsBadRequest(err):
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw(msg, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) (scope.Query, bool) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return scope.Query{}, false
	}
	q, err := scope.QueryFromRequest(r, id.OrganizationID)
	if err != nil {
		h.fail(w, err, "")
		return q, false
	}
	if t := r.URL.Query().Get("test_name"); t != "" {
		q.Filter.Equals = append(q.Filter.Equals, scope.Eq{Column: "test_name", Value: t})
	}
	return q, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load datasets")
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
		PlayerID   string   `json:"player_id"`
		RecordDate string   `json:"record_date"`
		Results    []Result `json:"results"`
	}
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	date, err := time.Parse(scope.DateLayout, req.RecordDate)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "record_date must be YYYY-MM-DD")
		return
	}
	out, err := h.svc.Create(r.Context(), id.OrganizationID, k, Input{PlayerID: req.PlayerID, RecordDate: date, Results: req.Results})
	if err != nil {
		h.fail(w, err, "could not save datasets")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, out)
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
		h.fail(w, err, "could not delete dataset")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Summary(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load physical summary")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, err, "")
		return
	}
	out, err := h.svc.Summary(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load physical summary")
		return
	}
	if err := export.Serve(w, format, "physical_"+q.Hierarchy.Kind().String(), SummarySheet(out)); err != nil {
		h.logger.Errorw("export failed", "err", err, "format", format)
		if errors.Is(err, export.ErrRender) {
			utilities.WriteError(w, http.StatusInternalServerError, "could not build export")
		}
	}
}
