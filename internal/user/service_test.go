package user

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
)

// memRepo is an in-memory Repository.
type memRepo struct {
	mu     sync.Mutex
	next   int64
	rows   map[int64]*entity.User
	failOn string
}

func newMemRepo() *memRepo { return &memRepo{rows: map[int64]*entity.User{}} }

func (m *memRepo) fail(op string) error {
	if m.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (m *memRepo) Create(_ context.Context, u *entity.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create"); err != nil {
		return 0, err
	}
	m.next++
	cp := *u
	cp.ID = m.next
	m.rows[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get_by_email"); err != nil {
		return nil, err
	}
	for _, u := range m.rows {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memRepo) GetByID(_ context.Context, orgID string, id int64) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok || u.OrganizationID != orgID {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memRepo) ListByOrganization(_ context.Context, orgID string) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.User
	for _, u := range m.rows {
		if u.OrganizationID == orgID {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetAccessRecord(_ context.Context, id int64) (*entity.AccessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entity.AccessRecord{ID: u.ID, OrganizationID: u.OrganizationID, Status: u.Status, AccessColumns: u.AccessColumns}, nil
}

func (m *memRepo) GetAuthView(_ context.Context, id int64) (*entity.AuthView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &entity.AuthView{ID: u.ID, OrganizationID: u.OrganizationID, Email: u.Email, FullName: u.FullName}, nil
}

func (m *memRepo) IncrementFailedLogin(_ context.Context, id int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].LoginFailedAttempts++
	return m.rows[id].LoginFailedAttempts, nil
}

func (m *memRepo) LockIfThreshold(_ context.Context, id int64, threshold int, lockMinutes int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	if u.Status != "active" || u.LoginFailedAttempts < threshold {
		return false, nil
	}
	until := time.Now().Add(time.Duration(lockMinutes) * time.Minute)
	u.Status, u.LockedUntil = "locked", &until
	return true, nil
}

func (m *memRepo) ResetLoginSuccess(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	u := m.rows[id]
	u.LoginFailedAttempts, u.LockedUntil, u.LastLoginAt = 0, nil, &now
	return nil
}

func (m *memRepo) UnlockIfExpired(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.rows[id]
	if u.Status != "locked" || u.LockedUntil == nil || !u.LockedUntil.Before(time.Now()) {
		return false, nil
	}
	u.Status, u.LockedUntil = "active", nil
	return true, nil
}

func (m *memRepo) scoped(orgID string, id int64) *entity.User {
	u, ok := m.rows[id]
	if !ok || u.OrganizationID != orgID {
		return nil
	}
	return u
}

func (m *memRepo) UpdatePassword(_ context.Context, orgID string, id int64, hash, algo string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.scoped(orgID, id)
	if u == nil {
		return 0, nil
	}
	u.PasswordHash, u.PasswordAlgo = &hash, &algo
	return 1, nil
}

func (m *memRepo) UpdateProfile(_ context.Context, orgID string, id int64, fullName, email string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.scoped(orgID, id)
	if u == nil {
		return 0, nil
	}
	u.FullName, u.Email = fullName, email
	return 1, nil
}

func (m *memRepo) UpdateAccess(_ context.Context, orgID string, id int64, c entity.AccessColumns) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update_access"); err != nil {
		return 0, err
	}
	u := m.scoped(orgID, id)
	if u == nil {
		return 0, nil
	}
	u.AccessColumns = c
	return 1, nil
}

func (m *memRepo) Delete(_ context.Context, orgID string, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scoped(orgID, id) == nil {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

type recordingNotifier struct {
	changed []int64
	deleted []int64
}

func (r *recordingNotifier) PermissionsChanged(id int64) { r.changed = append(r.changed, id) }
func (r *recordingNotifier) UserDeleted(id int64)        { r.deleted = append(r.deleted, id) }

func newTestService() (*UserService, *memRepo, *recordingNotifier) {
	repo := newMemRepo()
	n := &recordingNotifier{}
	return NewUserService(repo, BcryptHasher{Cost: bcrypt.MinCost}, n), repo, n
}

func seed(t *testing.T, svc *UserService, org, email string, levels access.Levels) int64 {
	t.Helper()
	id, err := svc.CreateUser(context.Background(), org, CreateInput{FullName: "Staff", Email: email, Password: "pw-123456", Permissions: levels})
	require.NoError(t, err)
	return id
}

func TestAuthenticatePassword(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id := seed(t, svc, "org-1", "coach@club.test", access.Levels{})

	view, err := svc.AuthenticatePassword(ctx, "  Coach@Club.test ", "pw-123456")
	require.NoError(t, err)
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "org-1", view.OrganizationID)

	_, err = svc.AuthenticatePassword(ctx, "coach@club.test", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	_, err = svc.AuthenticatePassword(ctx, "unknown@club.test", "pw-123456")
	assert.ErrorIs(t, err, ErrBadCredentials, "unknown emails look like bad passwords")

	_, err = svc.AuthenticatePassword(ctx, "", "pw-123456")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestAuthenticatePassword_Lockout(t *testing.T) {
	svc, repo, _ := newTestService()
	svc.MaxFailed = 3
	ctx := context.Background()
	id := seed(t, svc, "org-1", "coach@club.test", access.Levels{})

	for i := 0; i < 3; i++ {
		_, err := svc.AuthenticatePassword(ctx, "coach@club.test", "wrong")
		assert.ErrorIs(t, err, ErrBadCredentials)
	}
	_, err := svc.AuthenticatePassword(ctx, "coach@club.test", "pw-123456")
	assert.ErrorIs(t, err, ErrLocked)

	past := time.Now().Add(-time.Minute)
	repo.rows[id].LockedUntil = &past
	_, err = svc.AuthenticatePassword(ctx, "coach@club.test", "pw-123456")
	require.NoError(t, err, "expired locks are lifted")
	assert.Equal(t, 0, repo.rows[id].LoginFailedAttempts)
}

func TestAuthenticatePassword_Disabled(t *testing.T) {
	svc, repo, _ := newTestService()
	id := seed(t, svc, "org-1", "coach@club.test", access.Levels{})
	repo.rows[id].Status = "disabled"
	_, err := svc.AuthenticatePassword(context.Background(), "coach@club.test", "pw-123456")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestAuthenticatePassword_BackendError(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.failOn = "get_by_email"
	_, err := svc.AuthenticatePassword(context.Background(), "coach@club.test", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadCredentials)
}

func TestRehashOnLogin(t *testing.T) {
	svc, repo, _ := newTestService()
	id := seed(t, svc, "org-1", "coach@club.test", access.Levels{})
	before := *repo.rows[id].PasswordHash

	svc.hasher = BcryptHasher{Cost: bcrypt.MinCost + 1}
	_, err := svc.AuthenticatePassword(context.Background(), "coach@club.test", "pw-123456")
	require.NoError(t, err)
	assert.NotEqual(t, before, *repo.rows[id].PasswordHash)
	cost, err := bcrypt.Cost([]byte(*repo.rows[id].PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestCreateUser(t *testing.T) {
	svc, repo, _ := newTestService()
	var levels access.Levels
	levels.Set(access.MedicalPlayers, access.Viewer)
	levels.Set(access.Staff, access.Editor)

	id := seed(t, svc, "org-1", "New@Club.test", levels)
	u := repo.rows[id]
	assert.Equal(t, "new@club.test", u.Email)
	assert.Equal(t, "visualizador", *u.MedicalPlayersAccess)
	assert.Equal(t, "editor", *u.StaffAccess)
	assert.Equal(t, "sin_acceso", *u.FootballAccess)

	_, err := svc.CreateUser(context.Background(), "", CreateInput{Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateUser(context.Background(), "org-1", CreateInput{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateUser(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()
	id := seed(t, svc, "org-1", "coach@club.test", access.Levels{})

	name, email, pw := "Head Coach", "HEAD@club.test", "new-password"
	require.NoError(t, svc.UpdateUser(ctx, "org-1", id, UpdateInput{FullName: &name, Email: &email, Password: &pw}))
	assert.Equal(t, "Head Coach", repo.rows[id].FullName)
	assert.Equal(t, "head@club.test", repo.rows[id].Email)

	_, err := svc.AuthenticatePassword(ctx, "head@club.test", "new-password")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateUser(ctx, "org-2", id, UpdateInput{FullName: &name}), ErrUserNotFound)
	empty := ""
	assert.ErrorIs(t, svc.UpdateUser(ctx, "org-1", id, UpdateInput{Password: &empty}), ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateUser(ctx, "org-1", id, UpdateInput{Email: &empty}), ErrInvalidInput)
}

func TestDeleteUser(t *testing.T) {
	svc, _, n := newTestService()
	ctx := context.Background()
	admin := seed(t, svc, "org-1", "admin@club.test", access.Levels{})
	other := seed(t, svc, "org-1", "other@club.test", access.Levels{})

	assert.ErrorIs(t, svc.DeleteUser(ctx, "org-1", admin, admin), ErrSelfDelete)
	assert.ErrorIs(t, svc.DeleteUser(ctx, "org-2", admin, other), ErrUserNotFound)
	require.NoError(t, svc.DeleteUser(ctx, "org-1", admin, other))
	assert.Equal(t, []int64{other}, n.deleted)
}

func TestSetAccess(t *testing.T) {
	svc, repo, n := newTestService()
	ctx := context.Background()
	id := seed(t, svc, "org-1", "coach@club.test", access.Levels{})

	var levels access.Levels
	levels.Set(access.Physical, access.Editor)
	require.NoError(t, svc.SetAccess(ctx, "org-1", id, levels))
	assert.Equal(t, "editor", *repo.rows[id].PhysicalAccess)
	assert.Equal(t, []int64{id}, n.changed)

	rec, err := svc.GetAccessRecord(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Levels().Get(access.Physical).CanEdit())

	assert.ErrorIs(t, svc.SetAccess(ctx, "org-2", id, levels), ErrUserNotFound)
	assert.Len(t, n.changed, 1, "no notification when nothing changed")

	repo.failOn = "update_access"
	assert.Error(t, svc.SetAccess(ctx, "org-1", id, levels))
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService()
	seed(t, svc, "org-1", "a@club.test", access.Levels{})
	seed(t, svc, "org-1", "b@club.test", access.Levels{})
	seed(t, svc, "org-2", "c@club.test", access.Levels{})

	out, err := svc.List(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, p := range out {
		assert.NotEqual(t, "c@club.test", p.Email)
		assert.Equal(t, access.NoAccess, p.Permissions["staff"])
	}
}
