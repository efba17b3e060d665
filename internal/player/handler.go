package player

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/gate"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

const maxPhotoBytes = 5 << 20

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

// List serves GET /{kind}/players. repair=1 assigns orphan players to the
// requested category before reading; it is ignored unless the caller can
// edit the tree.
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
	repair := r.URL.Query().Get("repair") == "1"
	if repair {
		snap, _ := gate.SnapshotFrom(r.Context())
		if !snap.CanEdit(q.Hierarchy.Kind().Section()) {
			h.logger.Debugw("repair ignored for read-only caller", "user_id", id.UserID)
			repair = false
		}
	}
	out, err := h.svc.List(r.Context(), q, repair)
	if err != nil {
		h.fail(w, err, "could not load players")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

type playerRequest struct {
	SeasonID     string `json:"season_id"`
	CategoryID   string `json:"category_id"`
	FullName     string `json:"full_name"`
	Position     string `json:"position"`
	JerseyNumber *int   `json:"jersey_number"`
	BirthDate    string `json:"birth_date"`
}

func (p playerRequest) input() (Input, error) {
	in := Input{FullName: p.FullName, Position: p.Position, JerseyNumber: p.JerseyNumber}
	if p.BirthDate != "" {
		t, err := time.Parse(scope.DateLayout, p.BirthDate)
		if err != nil {
			return in, errors.New("birth_date must be YYYY-MM-DD")
		}
		in.BirthDate = &t
	}
	return in, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (playerRequest, Input, bool) {
	var req playerRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return req, Input{}, false
	}
	in, err := req.input()
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return req, in, false
	}
	return req, in, true
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
	req, in, ok := h.decode(w, r)
	if !ok {
		return
	}
	hier, err := scope.New(k, req.SeasonID, req.CategoryID)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	p, err := h.svc.Create(r.Context(), id.OrganizationID, hier, in)
	if err != nil {
		h.fail(w, err, "could not create player")
		return
	}
	h.logger.Infow("player created", "org", id.OrganizationID, "player", p.ID, "hierarchy", hier.String())
	utilities.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	_, in, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Update(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, err, "could not update player")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, true)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	h.setDeleted(w, r, false)
}

func (h *Handler) setDeleted(w http.ResponseWriter, r *http.Request, deleted bool) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	pid := mux.Vars(r)["id"]
	if deleted {
		err = h.svc.Delete(r.Context(), id.OrganizationID, k, pid)
	} else {
		err = h.svc.Restore(r.Context(), id.OrganizationID, k, pid)
	}
	if err != nil {
		h.fail(w, err, "could not update player")
		return
	}
	h.logger.Infow("player deleted flag changed", "org", id.OrganizationID, "player", pid, "deleted", deleted)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return
	}
	k, err := scope.KindFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	f, err := storage.FormFile(w, r, "file", maxPhotoBytes)
	if err != nil {
		code, msg := storage.StatusFor(err)
		utilities.WriteError(w, code, msg)
		return
	}
	defer f.Body.Close()
	url, err := h.svc.UploadPhoto(r.Context(), id.OrganizationID, k, mux.Vars(r)["id"], f)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
			h.fail(w, err, "")
			return
		}
		h.logger.Errorw("photo upload failed", "err", err, "org", id.OrganizationID)
		code, msg := storage.StatusFor(err)
		utilities.WriteError(w, code, msg)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"photo_url": url})
}
