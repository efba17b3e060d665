package permission

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
)

func str(s string) *string { return &s }

type fakeSource struct {
	mu      sync.Mutex
	records map[int64]*entity.AccessRecord
	err     error
	calls   atomic.Int32
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeSource) GetAccessRecord(ctx context.Context, id int64) (*entity.AccessRecord, error) {
	f.calls.Add(1)
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeSource) set(id int64, rec *entity.AccessRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id] = rec
}

func scenarioA() *entity.AccessRecord {
	return &entity.AccessRecord{
		ID:             7,
		OrganizationID: "org-1",
		Status:         "active",
		AccessColumns: entity.AccessColumns{
			SeniorFootballAccess: str("sin_acceso"),
			FootballAccess:       str("sin_acceso"),
			MedicalPlayersAccess: str("visualizador"),
			MedicalStaffAccess:   str("sin_acceso"),
			PhysicalAccess:       str("sin_acceso"),
			YouthRecordsAccess:   str("sin_acceso"),
			StaffAccess:          str("editor"),
		},
	}
}

func newResolver(src Source) *Resolver {
	return NewResolver(src, Config{CacheSize: 16, CacheTTL: time.Minute}, nil)
}

func TestResolver_ScenarioA(t *testing.T) {
	src := &fakeSource{records: map[int64]*entity.AccessRecord{7: scenarioA()}}
	r := newResolver(src)

	snap := r.Load(context.Background(), 7)
	require.False(t, snap.IsLoading())
	assert.Equal(t, "org-1", snap.Permissions.OrganizationID)

	assert.True(t, snap.CanView(access.MedicalPlayers))
	assert.False(t, snap.CanEdit(access.MedicalPlayers))
	assert.False(t, snap.CanView(access.Football))
	assert.True(t, snap.CanEdit(access.Staff))

	path, ok := snap.FirstAccessibleSection()
	require.True(t, ok)
	assert.Equal(t, access.MedicalPlayers.Path(), path)
}

func TestResolver_FailClosed(t *testing.T) {
	t.Run("fetch error", func(t *testing.T) {
		src := &fakeSource{records: map[int64]*entity.AccessRecord{7: scenarioA()}, err: errors.New("connection refused")}
		r := newResolver(src)
		snap := r.Load(context.Background(), 7)
		require.False(t, snap.IsLoading())
		for _, s := range access.Sections() {
			assert.False(t, snap.CanView(s), s.Key())
			assert.False(t, snap.CanEdit(s), s.Key())
		}
		_, ok := snap.FirstAccessibleSection()
		assert.False(t, ok)
		assert.Equal(t, access.FallbackPath, snap.Landing())
	})

	t.Run("missing row", func(t *testing.T) {
		r := newResolver(&fakeSource{records: map[int64]*entity.AccessRecord{}})
		snap := r.Load(context.Background(), 99)
		assert.False(t, snap.CanView(access.Staff))
	})

	t.Run("missing field", func(t *testing.T) {
		rec := scenarioA()
		rec.StaffAccess = nil
		r := newResolver(&fakeSource{records: map[int64]*entity.AccessRecord{7: rec}})
		snap := r.Load(context.Background(), 7)
		assert.False(t, snap.CanView(access.Staff))
		assert.False(t, snap.CanEdit(access.Staff))
	})

	t.Run("disabled account", func(t *testing.T) {
		rec := scenarioA()
		rec.Status = "disabled"
		r := newResolver(&fakeSource{records: map[int64]*entity.AccessRecord{7: rec}})
		snap := r.Load(context.Background(), 7)
		assert.False(t, snap.CanView(access.MedicalPlayers))
	})

	t.Run("errors are not cached", func(t *testing.T) {
		src := &fakeSource{records: map[int64]*entity.AccessRecord{7: scenarioA()}, err: errors.New("boom")}
		r := newResolver(src)
		r.Load(context.Background(), 7)
		src.mu.Lock()
		src.err = nil
		src.mu.Unlock()
		snap := r.Load(context.Background(), 7)
		assert.True(t, snap.CanView(access.MedicalPlayers))
	})
}

func TestResolver_CachesUntilInvalidated(t *testing.T) {
	src := &fakeSource{records: map[int64]*entity.AccessRecord{7: scenarioA()}}
	r := newResolver(src)

	r.Load(context.Background(), 7)
	r.Load(context.Background(), 7)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.False(t, r.Peek(7).IsLoading())

	updated := scenarioA()
	updated.FootballAccess = str("editor")
	src.set(7, updated)

	r.Invalidate(7)
	assert.True(t, r.Peek(7).IsLoading())

	snap := r.Load(context.Background(), 7)
	assert.True(t, snap.CanEdit(access.Football))
	assert.Equal(t, int32(2), src.calls.Load())

	r.Purge()
	assert.True(t, r.Peek(7).IsLoading())
}

func TestResolver_LoadingUntilResolved(t *testing.T) {
	src := &fakeSource{
		records: map[int64]*entity.AccessRecord{7: scenarioA()},
		block:   make(chan struct{}),
	}
	r := newResolver(src)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap := r.Load(ctx, 7)
	assert.True(t, snap.IsLoading())
	assert.False(t, snap.CanView(access.MedicalPlayers))
	_, ok := snap.FirstAccessibleSection()
	assert.False(t, ok)

	close(src.block)
	require.Eventually(t, func() bool { return !r.Peek(7).IsLoading() }, time.Second, 5*time.Millisecond)
	assert.True(t, r.Peek(7).CanView(access.MedicalPlayers))
}

func TestResolver_StaleLoadNotCached(t *testing.T) {
	src := &fakeSource{
		records: map[int64]*entity.AccessRecord{7: scenarioA()},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	r := newResolver(src)

	done := make(chan Snapshot, 1)
	go func() { done <- r.Load(context.Background(), 7) }()

	<-src.entered
	r.Invalidate(7)
	close(src.block)

	snap := <-done
	assert.False(t, snap.IsLoading())
	assert.True(t, r.Peek(7).IsLoading(), "result of a load overtaken by invalidation must not be cached")
}

func TestResolver_InvalidateDoesNotGrow(t *testing.T) {
	src := &fakeSource{records: map[int64]*entity.AccessRecord{7: scenarioA()}}
	r := newResolver(src)

	for id := int64(1); id <= 100; id++ {
		r.Invalidate(id)
	}
	r.Load(context.Background(), 7)
	r.Invalidate(7)
	r.Load(context.Background(), 8)
	assert.Zero(t, r.pending(), "no bookkeeping is kept once loads finish")

	src.block = make(chan struct{})
	src.entered = make(chan struct{}, 1)
	done := make(chan Snapshot, 1)
	go func() { done <- r.Load(context.Background(), 7) }()
	<-src.entered
	assert.Equal(t, 1, r.pending())
	close(src.block)
	<-done
	assert.Zero(t, r.pending())
	assert.False(t, r.Peek(7).IsLoading())
}

func TestResolver_ConcurrentLoadsShareRead(t *testing.T) {
	src := &fakeSource{
		records: map[int64]*entity.AccessRecord{7: scenarioA()},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	r := newResolver(src)

	var wg sync.WaitGroup
	results := make([]Snapshot, 8)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = r.Load(context.Background(), 7)
	}()
	<-src.entered
	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Load(context.Background(), 7)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.block)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, s := range results {
		assert.True(t, s.CanEdit(access.Staff))
	}
}

func TestFirstAccessibleSectionDeterministic(t *testing.T) {
	var l access.Levels
	l.Set(access.Staff, access.Editor)
	l.Set(access.Physical, access.NoAccess)
	p := UserPermissions{Levels: l}

	first, ok := p.FirstAccessibleSection()
	require.True(t, ok)
	for i := 0; i < 20; i++ {
		again, _ := p.FirstAccessibleSection()
		assert.Equal(t, first, again)
	}
	assert.Equal(t, access.Staff.Path(), first)

	_, ok = UserPermissions{}.FirstAccessibleSection()
	assert.False(t, ok)
}

func TestEditImpliesViewForAllSets(t *testing.T) {
	levels := []access.Level{access.NoAccess, access.Viewer, access.Editor}
	for _, lvl := range levels {
		for _, sec := range access.Sections() {
			var l access.Levels
			l.Set(sec, lvl)
			p := UserPermissions{Levels: l}
			if p.CanEdit(sec) {
				assert.True(t, p.CanView(sec))
			}
		}
	}
}
