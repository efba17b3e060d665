package coach

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	seasonrepo "github.com/ovaphlow/pitchfork/service-club-go/internal/season/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/database/dbtest"
)

func setup(t *testing.T) (*Service, scope.Hierarchy, scope.Hierarchy) {
	t.Helper()
	db := dbtest.SQLite(t)
	sr := seasonrepo.NewSeasonRepo(db)
	cr := repo.NewCoachRepo(db)
	dbtest.Ensure(t, sr, cr)
	seasons := season.NewService(sr)

	ctx := context.Background()
	ys, err := seasons.CreateSeason(ctx, "org-1", scope.KindYouth, season.SeasonInput{Name: "2024/25"})
	require.NoError(t, err)
	yc, err := seasons.CreateCategory(ctx, "org-1", scope.KindYouth, ys.ID, "Sub-10")
	require.NoError(t, err)
	ss, err := seasons.CreateSeason(ctx, "org-1", scope.KindSenior, season.SeasonInput{Name: "Primera"})
	require.NoError(t, err)
	sc, err := seasons.CreateCategory(ctx, "org-1", scope.KindSenior, ss.ID, "First team")
	require.NoError(t, err)
	return NewService(cr, seasons), scope.Youth(ys.ID, yc.ID), scope.Senior(ss.ID, sc.ID)
}

func TestCoaches(t *testing.T) {
	svc, youth, senior := setup(t)
	ctx := context.Background()

	marta, err := svc.Create(ctx, "org-1", youth, Input{FullName: "Marta", Role: "head coach", Email: "marta@club.test"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "org-1", senior, Input{FullName: "Jon", Role: "assistant"})
	require.NoError(t, err)

	got, err := svc.List(ctx, scope.Query{OrganizationID: "org-1", Hierarchy: scope.Youth("", youth.CategoryID())})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Marta", got[0].FullName)
	assert.Equal(t, "marta@club.test", *got[0].Email)
	assert.Nil(t, got[0].Phone)

	got, err = svc.List(ctx, scope.Query{OrganizationID: "org-2", Hierarchy: scope.Youth("", youth.CategoryID())})
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.ErrorIs(t, svc.Delete(ctx, "org-1", scope.KindSenior, marta.ID), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "org-2", scope.KindYouth, marta.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "org-1", scope.KindYouth, marta.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "org-1", scope.KindYouth, marta.ID), ErrNotFound, "hard delete")
}

func TestCreate_Validation(t *testing.T) {
	svc, youth, _ := setup(t)
	_, err := svc.Create(context.Background(), "org-1", youth, Input{FullName: "x", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Create(context.Background(), "org-1", youth, Input{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHandler(t *testing.T) {
	svc, youth, _ := setup(t)
	h := NewHandler(svc, nil)
	as := func(r *http.Request, vars map[string]string) *http.Request {
		r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UserID: 1, OrganizationID: "org-1"}))
		return mux.SetURLVars(r, vars)
	}

	rec := httptest.NewRecorder()
	h.Create(rec, as(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"full_name":"Marta","category_id":"`+youth.CategoryID()+`"}`)), map[string]string{"kind": "youth"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Create(rec, as(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"full_name":"Marta","category_id":"nope"}`)), map[string]string{"kind": "youth"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, as(httptest.NewRequest(http.MethodGet, "/?season_id="+youth.SeasonID(), nil), map[string]string{"kind": "youth"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"full_name":"Marta"`)

	rec = httptest.NewRecorder()
	h.Delete(rec, as(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"kind": "youth", "id": "missing"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
