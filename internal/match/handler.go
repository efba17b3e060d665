package match

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/export"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

const maxVideoBytes = 512 << 20

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
	case errors.Is(err, ErrInvalidInput), errors.Is(err, season.ErrInvalidInput),
		errors.Is(err, export.ErrUnknownFormat), scope.IsBadRequest(err):
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, season.ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw(msg, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) kind(w http.ResponseWriter, r *http.Request) (*auth.Identity, scope.Kind, bool) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return nil, 0, false
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return nil, 0, false
	}
	return id, k, true
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
	return q, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load matches")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

type matchRequest struct {
	SeasonID     string `json:"season_id"`
	CategoryID   string `json:"category_id"`
	Opponent     string `json:"opponent"`
	Competition  string `json:"competition"`
	MatchDate    string `json:"match_date"`
	IsHome       bool   `json:"is_home"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	var req matchRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	date, err := time.Parse(scope.DateLayout, req.MatchDate)
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "match_date must be YYYY-MM-DD")
		return
	}
	hier, err := scope.New(k, req.SeasonID, req.CategoryID)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	m, err := h.svc.Create(r.Context(), id.OrganizationID, hier, Input{
		Opponent:     req.Opponent,
		Competition:  req.Competition,
		MatchDate:    date,
		IsHome:       req.IsHome,
		GoalsFor:     req.GoalsFor,
		GoalsAgainst: req.GoalsAgainst,
	})
	if err != nil {
		h.fail(w, err, "could not create match")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err, "could not delete match")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Stats(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err, "could not load match stats")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) SaveStats(w http.ResponseWriter, r *http.Request) {
	id, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	var req struct {
		Stats []StatInput `json:"stats"`
	}
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	out, err := h.svc.SaveStats(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"], req.Stats)
	if err != nil {
		h.fail(w, err, "could not save match stats")
		return
	}
	h.logger.Infow("match stats saved", "org", id.OrganizationID, "match", mux.Vars(r)["id"], "lines", len(out))
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) UploadVideo(w http.ResponseWriter, r *http.Request) {
	id, k, ok := h.kind(w, r)
	if !ok {
		return
	}
	f, err := storage.FormFile(w, r, "file", maxVideoBytes)
	if err != nil {
		code, msg := storage.StatusFor(err)
		utilities.WriteError(w, code, msg)
		return
	}
	defer f.Body.Close()
	url, err := h.svc.UploadVideo(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"], f)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
			h.fail(w, err, "")
			return
		}
		h.logger.Errorw("video upload failed", "err", err, "org", id.OrganizationID)
		code, msg := storage.StatusFor(err)
		utilities.WriteError(w, code, msg)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"video_url": url})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Summary(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load summary")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	h.export(w, r, q, "match_summary_"+q.Hierarchy.Kind().String())
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, q scope.Query, base string) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.fail(w, err, "")
		return
	}
	out, err := h.svc.Summary(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load summary")
		return
	}
	if err := export.Serve(w, format, base, SummarySheet("Player summary", out)); err != nil {
		h.logger.Errorw("export failed", "err", err, "format", format)
		if errors.Is(err, export.ErrRender) {
			utilities.WriteError(w, http.StatusInternalServerError, "could not build export")
		}
	}
}

// YouthRecords serves the youth-records section: match statistics of the
// youth tree per player, deleted players included.
func (h *Handler) YouthRecords(w http.ResponseWriter, r *http.Request) {
	q, ok := h.youthQuery(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Summary(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load youth records")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) ExportYouthRecords(w http.ResponseWriter, r *http.Request) {
	q, ok := h.youthQuery(w, r)
	if !ok {
		return
	}
	h.export(w, r, q, "youth_records")
}

func (h *Handler) youthQuery(w http.ResponseWriter, r *http.Request) (scope.Query, bool) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return scope.Query{}, false
	}
	q, err := scope.QueryForKind(r, id.OrganizationID, scope.KindYouth)
	if err != nil {
		h.fail(w, err, "")
		return q, false
	}
	return q, true
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Overview(r.Context(), q)
	if err != nil {
		h.fail(w, err, "could not load overview")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}
