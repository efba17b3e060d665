package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
)

func asUser(r *http.Request, uid int64, org string) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{UserID: uid, OrganizationID: org}))
}

func post(t *testing.T, h http.HandlerFunc, r *http.Request) (*httptest.ResponseRecorder, FunctionResult) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, r)
	var res FunctionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec, res
}

func jsonBody(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func TestDeleteUserFunction(t *testing.T) {
	svc, _, n := newTestService()
	h := NewHandler(svc, nil)
	admin := seed(t, svc, "org-1", "admin@club.test", access.Levels{})
	other := seed(t, svc, "org-1", "other@club.test", access.Levels{})

	req := asUser(httptest.NewRequest(http.MethodPost, "/club-api/functions/delete-user", jsonBody(map[string]int64{"user_id": admin})), admin, "org-1")
	rec, res := post(t, h.DeleteUserFunction, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, res.Success)
	assert.Equal(t, ErrSelfDelete.Error(), res.Error, "error message is passed through verbatim")

	req = asUser(httptest.NewRequest(http.MethodPost, "/club-api/functions/delete-user", jsonBody(map[string]int64{"user_id": other})), admin, "org-2")
	rec, res = post(t, h.DeleteUserFunction, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, res.Success)

	req = asUser(httptest.NewRequest(http.MethodPost, "/club-api/functions/delete-user", jsonBody(map[string]int64{"user_id": other})), admin, "org-1")
	rec, res = post(t, h.DeleteUserFunction, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	assert.Empty(t, res.Error)
	assert.Equal(t, []int64{other}, n.deleted)

	req = asUser(httptest.NewRequest(http.MethodPost, "/club-api/functions/delete-user", bytes.NewReader([]byte("{}"))), admin, "org-1")
	rec, res = post(t, h.DeleteUserFunction, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user_id is required", res.Error)
}

func TestUpdateUserFunction(t *testing.T) {
	svc, repo, _ := newTestService()
	h := NewHandler(svc, nil)
	admin := seed(t, svc, "org-1", "admin@club.test", access.Levels{})
	other := seed(t, svc, "org-1", "other@club.test", access.Levels{})

	req := asUser(httptest.NewRequest(http.MethodPost, "/club-api/functions/update-user",
		jsonBody(map[string]any{"user_id": other, "full_name": "Renamed", "password": "changed-pw"})), admin, "org-1")
	rec, res := post(t, h.UpdateUserFunction, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, res.Success)
	assert.Equal(t, "Renamed", repo.rows[other].FullName)

	_, err := svc.AuthenticatePassword(context.Background(), "other@club.test", "changed-pw")
	assert.NoError(t, err)

	req = asUser(httptest.NewRequest(http.MethodPost, "/club-api/functions/update-user",
		jsonBody(map[string]any{"user_id": other, "password": ""})), admin, "org-1")
	rec, res = post(t, h.UpdateUserFunction, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrInvalidInput.Error(), res.Error)
}

func TestUnauthenticatedFunctions(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc, nil)
	rec := httptest.NewRecorder()
	h.DeleteUserFunction(rec, httptest.NewRequest(http.MethodPost, "/", jsonBody(map[string]int64{"user_id": 1})))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffEndpoints(t *testing.T) {
	svc, _, n := newTestService()
	h := NewHandler(svc, nil)
	admin := seed(t, svc, "org-1", "admin@club.test", access.Levels{})

	req := asUser(httptest.NewRequest(http.MethodPost, "/club-api/staff/users", jsonBody(CreateRequest{
		FullName:    "Physio",
		Email:       "physio@club.test",
		Password:    "pw-123456",
		Permissions: map[string]string{"medical_players": "editor", "physical": "visualizador"},
	})), admin, "org-1")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	physio := created["id"]

	req = asUser(httptest.NewRequest(http.MethodPost, "/club-api/staff/users", jsonBody(CreateRequest{
		Email: "x@club.test", Password: "pw", Permissions: map[string]string{"kitchen": "editor"},
	})), admin, "org-1")
	rec = httptest.NewRecorder()
	h.Create(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodPut, "/club-api/staff/users/x/permissions",
		jsonBody(PermissionsRequest{Permissions: map[string]string{"staff": "editor"}})), admin, "org-1")
	req = mux.SetURLVars(req, map[string]string{"id": "999"})
	rec = httptest.NewRecorder()
	h.SetPermissions(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = asUser(httptest.NewRequest(http.MethodPut, "/club-api/staff/users/x/permissions",
		jsonBody(PermissionsRequest{Permissions: map[string]string{"staff": "editor"}})), admin, "org-1")
	req = mux.SetURLVars(req, map[string]string{"id": jsonID(physio)})
	rec = httptest.NewRecorder()
	h.SetPermissions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{physio}, n.changed)

	rec = httptest.NewRecorder()
	h.List(rec, asUser(httptest.NewRequest(http.MethodGet, "/club-api/staff/users", nil), admin, "org-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		Email       string            `json:"email"`
		Permissions map[string]string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, p := range list {
		if p.Email == "physio@club.test" {
			assert.Equal(t, "editor", p.Permissions["staff"])
			assert.Equal(t, "no_access", p.Permissions["medical_players"], "permissions are replaced, not merged")
		}
	}
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
