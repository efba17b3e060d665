package medical

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

const maxDocumentBytes = 20 << 20

// SectionFromRequest maps the {subject} route variable to its section.
func SectionFromRequest(r *http.Request) (access.Section, bool) {
	s, err := entity.ParseSubject(mux.Vars(r)["subject"])
	if err != nil {
		return 0, false
	}
	return s.Section(), true
}

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
	case errors.Is(err, ErrInvalidInput), errors.Is(err, entity.ErrUnknownSubject), scope.IsBadRequest(err):
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Errorw(msg, "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (*auth.Identity, entity.Subject, bool) {
	id, ok := auth.RequireIdentity(w, r)
	if !ok {
		return nil, "", false
	}
	s, err := entity.ParseSubject(mux.Vars(r)["subject"])
	if err != nil {
		h.fail(w, err, "")
		return nil, "", false
	}
	return id, s, true
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) (scope.Query, entity.Subject, bool) {
	id, s, ok := h.subject(w, r)
	if !ok {
		return scope.Query{}, "", false
	}
	f, err := scope.FilterFromRequest(r)
	if err != nil {
		h.fail(w, err, "")
		return scope.Query{}, "", false
	}
	if st := r.URL.Query().Get("status"); st != "" {
		f.Equals = append(f.Equals, scope.Eq{Column: "status", Value: st})
	}
	return scope.Query{OrganizationID: id.OrganizationID, Filter: f}, s, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, s, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.List(r.Context(), s, q)
	if err != nil {
		h.fail(w, err, "could not load medical records")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	q, s, ok := h.query(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Summary(r.Context(), s, q)
	if err != nil {
		h.fail(w, err, "could not load medical summary")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

type recordRequest struct {
	PlayerID       string `json:"player_id"`
	PersonName     string `json:"person_name"`
	RecordDate     string `json:"record_date"`
	Diagnosis      string `json:"diagnosis"`
	Treatment      string `json:"treatment"`
	Status         string `json:"status"`
	ExpectedReturn string `json:"expected_return"`
	Notes          string `json:"notes"`
}

func (req recordRequest) input() (Input, error) {
	in := Input{
		PlayerID:   req.PlayerID,
		PersonName: req.PersonName,
		Diagnosis:  req.Diagnosis,
		Treatment:  req.Treatment,
		Status:     req.Status,
		Notes:      req.Notes,
	}
	d, err := time.Parse(scope.DateLayout, req.RecordDate)
	if err != nil {
		return in, errors.New("record_date must be YYYY-MM-DD")
	}
	in.RecordDate = d
	if req.ExpectedReturn != "" {
		d, err := time.Parse(scope.DateLayout, req.ExpectedReturn)
		if err != nil {
			return in, errors.New("expected_return must be YYYY-MM-DD")
		}
		in.ExpectedReturn = &d
	}
	return in, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req recordRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return Input{}, false
	}
	in, err := req.input()
	if err != nil {
		utilities.WriteError(w, http.StatusBadRequest, err.Error())
		return Input{}, false
	}
	return in, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.subject(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Create(r.Context(), id.OrganizationID, s, in)
	if err != nil {
		h.fail(w, err, "could not create medical record")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.subject(w, r)
	if !ok {
		return
	}
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	rec, err := h.svc.Update(r.Context(), id.OrganizationID, s, mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, err, "could not update medical record")
		return
	}
	utilities.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.subject(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id.OrganizationID, s, mux.Vars(r)["id"]); err != nil {
		h.fail(w, err, "could not delete medical record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.subject(w, r)
	if !ok {
		return
	}
	f, err := storage.FormFile(w, r, "file", maxDocumentBytes)
	if err != nil {
		code, msg := storage.StatusFor(err)
		utilities.WriteError(w, code, msg)
		return
	}
	defer f.Body.Close()
	url, err := h.svc.UploadDocument(r.Context(), id.OrganizationID, s, mux.Vars(r)["id"], f)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) {
			h.fail(w, err, "")
			return
		}
		h.logger.Errorw("document upload failed", "err", err, "org", id.OrganizationID)
		code, msg := storage.StatusFor(err)
		utilities.WriteError(w, code, msg)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]string{"document_url": url})
}
