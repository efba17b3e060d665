package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach"
	coachrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/coach/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/gate"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/match"
	matchrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/match/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical"
	medicalrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/medical/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/permission"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/physical"
	physicalrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/physical/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/player"
	playerrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/player/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	seasonrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/season/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/database/dbtest"
)

type fakeUsers map[string]*entity.AuthView

func (f fakeUsers) AuthenticatePassword(_ context.Context, email, password string) (*entity.AuthView, error) {
	v, ok := f[email]
	if !ok || password != "secret" {
		return nil, auth.ErrBadCredentials
	}
	return v, nil
}

type staticLoader map[int64]permission.Snapshot

func (s staticLoader) Load(_ context.Context, userID int64) permission.Snapshot {
	if snap, ok := s[userID]; ok {
		return snap
	}
	return permission.Loading(userID)
}

func resolved(uid int64, set map[access.Section]access.Level) permission.Snapshot {
	var l access.Levels
	for s, lvl := range set {
		l.Set(s, lvl)
	}
	return permission.Resolved(permission.UserPermissions{UserID: uid, OrganizationID: "org-1", Levels: l})
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	db := dbtest.SQLite(t)
	sr := seasonrepo.NewSeasonRepo(db)
	pr := playerrepo.NewPlayerRepo(db)
	cr := coachrepo.NewCoachRepo(db)
	mr := matchrepo.NewMatchRepo(db)
	rr := medicalrepo.NewRecordRepo(db)
	dr := physicalrepo.NewDatasetRepo(db)
	dbtest.Ensure(t, sr, pr, cr, mr, rr, dr)

	seasons := season.NewService(sr)
	players := player.NewService(pr, seasons, nil, nil)
	coaches := coach.NewService(cr, seasons)

	perms := staticLoader{
		1: resolved(1, map[access.Section]access.Level{access.Football: access.Editor, access.MedicalPlayers: access.Viewer}),
		2: resolved(2, map[access.Section]access.Level{access.Physical: access.Viewer}),
	}
	cfg := auth.Config{Secret: "router-test", Issuer: "club-api", SessionTTL: time.Hour, CookieName: "club_session"}
	sessions, err := auth.NewService(fakeUsers{
		"coach@club.test":  {ID: 1, OrganizationID: "org-1", Email: "coach@club.test"},
		"physio@club.test": {ID: 2, OrganizationID: "org-1", Email: "physio@club.test"},
		"new@club.test":    {ID: 3, OrganizationID: "org-1", Email: "new@club.test"},
	}, auth.NewMemoryStore(16, time.Hour), nil, cfg, nil)
	require.NoError(t, err)

	return New(Deps{
		Registry:   prometheus.NewRegistry(),
		Sessions:   sessions,
		CookieName: cfg.CookieName,
		Gate:       gate.New(perms, nil, nil),
		Auth:       auth.NewHandler(sessions, perms, cfg, nil),
		Users:      user.NewHandler(user.NewUserService(nil, user.BcryptHasher{}, nil), nil),
		Seasons:    season.NewHandler(seasons, nil),
		Players:    player.NewHandler(players, nil),
		Coaches:    coach.NewHandler(coaches, nil),
		Matches:    match.NewHandler(match.NewService(mr, seasons, players, coaches, nil, nil), nil),
		Medical:    medical.NewHandler(medical.NewService(medicalrepo.NewRecordRepo(db), players, nil, nil), nil),
		Physical:   physical.NewHandler(physical.NewService(dr, players, nil), nil),
	})
}

func signIn(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": "secret"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/club-api/auth/sign-in", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func do(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestHealthAndHeaders(t *testing.T) {
	h := newServer(t)
	rec := do(h, http.MethodGet, "/club-api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/club-api/health", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = do(h, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `club_http_requests_total{method="GET",route="/club-api/health",status="200"} 2`)
}

func TestPages(t *testing.T) {
	h := newServer(t)

	rec := do(h, http.MethodGet, "/dashboard", "", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, access.LoginPath, rec.Header().Get("Location"))

	coachToken := signIn(t, h, "coach@club.test")
	rec = do(h, http.MethodGet, "/dashboard", coachToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"section":"football","label":"Youth Football","can_edit":true}`, rec.Body.String())

	rec = do(h, http.MethodGet, "/dashboard/senior", coachToken, "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"), "denied pages send the user to their first section")

	rec = do(h, http.MethodGet, "/dashboard/home", signIn(t, h, "physio@club.test"), "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/physical", rec.Header().Get("Location"))

	rec = do(h, http.MethodGet, "/dashboard/physical", signIn(t, h, "new@club.test"), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "unresolved permissions wait instead of redirecting")

	rec = do(h, http.MethodGet, "/no-access", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIGating(t *testing.T) {
	h := newServer(t)
	coachToken := signIn(t, h, "coach@club.test")
	physioToken := signIn(t, h, "physio@club.test")

	rec := do(h, http.MethodGet, "/club-api/youth/seasons", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, "/club-api/youth/seasons", coachToken, `{"name":"2024/25"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(h, http.MethodGet, "/club-api/youth/seasons", coachToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2024/25")

	rec = do(h, http.MethodGet, "/club-api/senior/seasons", coachToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect":"/dashboard"`)

	rec = do(h, http.MethodGet, "/club-api/youth/matches/summary", coachToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/club-api/medical/players/records", coachToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(h, http.MethodPost, "/club-api/medical/players/records", coachToken, `{}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, "viewers cannot write")
	rec = do(h, http.MethodGet, "/club-api/medical/staff/records", coachToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(h, http.MethodGet, "/club-api/medical/fans/records", coachToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/club-api/physical/datasets?kind=youth", physioToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(h, http.MethodGet, "/club-api/physical/datasets?kind=youth", coachToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(h, http.MethodGet, "/club-api/staff/users", physioToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(h, http.MethodPost, "/club-api/functions/delete-user", coachToken, `{"user_id":5}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(h, http.MethodPost, "/club-api/auth/sign-out", coachToken, "")
	require.Less(t, rec.Code, 300)
	rec = do(h, http.MethodGet, "/club-api/youth/seasons", coachToken, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "signed-out tokens are rejected")
}
