package permission

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
)

// Source fetches the access columns of a user.
type Source interface {
	GetAccessRecord(ctx context.Context, id int64) (*entity.AccessRecord, error)
}

// Config sizes the session cache.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

// ConfigFromEnv reads PERMISSION_CACHE_SIZE and PERMISSION_CACHE_TTL.
func ConfigFromEnv() Config {
	size, err := strconv.Atoi(os.Getenv("PERMISSION_CACHE_SIZE"))
	if err != nil || size <= 0 {
		size = 5000
	}
	ttl, err := time.ParseDuration(os.Getenv("PERMISSION_CACHE_TTL"))
	if err != nil || ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return Config{CacheSize: size, CacheTTL: ttl}
}

// Resolver owns the cached UserPermissions. Nothing else mutates them.
type Resolver struct {
	src    Source
	logger *zap.SugaredLogger
	cache  *lru.LRU[int64, UserPermissions]
	group  singleflight.Group

	mu    sync.Mutex
	epoch uint64
	// inflight holds a generation per user only while loads for that user
	// are running.
	inflight map[int64]*flight
}

type flight struct {
	refs int
	gen  uint64
}

type loadGen struct {
	epoch uint64
	user  uint64
}

func NewResolver(src Source, cfg Config, logger *zap.SugaredLogger) *Resolver {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 5000
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Resolver{
		src:      src,
		logger:   logger,
		cache:    lru.NewLRU[int64, UserPermissions](cfg.CacheSize, nil, cfg.CacheTTL),
		inflight: make(map[int64]*flight),
	}
}

// Peek returns the cached snapshot without loading; uncached users are loading.
func (r *Resolver) Peek(userID int64) Snapshot {
	if p, ok := r.cache.Get(userID); ok {
		return Resolved(p)
	}
	return Loading(userID)
}

// Load resolves userID's permissions. Concurrent loads for the same user share
// one backend read. If ctx ends before the read completes the snapshot is still
// loading; the read itself carries on and fills the cache for later callers.
func (r *Resolver) Load(ctx context.Context, userID int64) Snapshot {
	if p, ok := r.cache.Get(userID); ok {
		return Resolved(p)
	}

	key := strconv.FormatInt(userID, 10)
	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		gen := r.begin(userID)
		p, ok := r.fetch(fetchCtx, userID)
		r.finish(userID, gen, p, ok)
		return p, nil
	})

	select {
	case res := <-ch:
		return Resolved(res.Val.(UserPermissions))
	case <-ctx.Done():
		return Loading(userID)
	}
}

// Invalidate drops the cached permissions of userID. A load already in flight
// for that user will not write its result to the cache.
func (r *Resolver) Invalidate(userID int64) {
	r.mu.Lock()
	if f, ok := r.inflight[userID]; ok {
		f.gen++
	}
	r.cache.Remove(userID)
	r.mu.Unlock()
	r.group.Forget(strconv.FormatInt(userID, 10))
}

// Purge drops every cached entry.
func (r *Resolver) Purge() {
	r.mu.Lock()
	r.epoch++
	r.cache.Purge()
	r.mu.Unlock()
}

func (r *Resolver) begin(userID int64) loadGen {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.inflight[userID]
	if !ok {
		f = &flight{}
		r.inflight[userID] = f
	}
	f.refs++
	return loadGen{epoch: r.epoch, user: f.gen}
}

// finish caches p when ok and no invalidation happened since begin, then
// releases the load.
func (r *Resolver) finish(userID int64, gen loadGen, p UserPermissions, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.inflight[userID]
	if ok {
		if (loadGen{epoch: r.epoch, user: f.gen}) == gen {
			r.cache.Add(userID, p)
		} else {
			r.logger.Debugw("discarding stale permission load", "user_id", userID)
		}
	}
	if f.refs--; f.refs == 0 {
		delete(r.inflight, userID)
	}
}

// pending reports how many users have loads in flight.
func (r *Resolver) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// fetch reads the user row. The bool is false when the result is a fail-closed
// fallback that must not be cached.
func (r *Resolver) fetch(ctx context.Context, userID int64) (UserPermissions, bool) {
	denied := UserPermissions{UserID: userID}
	rec, err := r.src.GetAccessRecord(ctx, userID)
	if err != nil {
		r.logger.Warnw("permission load failed; denying all sections", "user_id", userID, "err", err)
		return denied, false
	}
	if rec == nil {
		return denied, false
	}
	p := UserPermissions{UserID: rec.ID, OrganizationID: rec.OrganizationID}
	if rec.Status == "disabled" {
		return p, true
	}
	p.Levels = rec.Levels()
	return p, true
}
