package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(id string, uid int64, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{ID: id, UserID: uid, OrganizationID: "org-1", CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

func TestTokenIssuer(t *testing.T) {
	iss := NewTokenIssuer("secret", "club-api")
	sess := testSession("sess-1", 42, time.Hour)

	tok, err := iss.Issue(sess)
	require.NoError(t, err)

	id, uid, err := iss.Parse(tok, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, int64(42), uid)

	t.Run("expired", func(t *testing.T) {
		_, _, err := iss.Parse(tok, sess.ExpiresAt.Add(time.Minute))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		_, _, err := NewTokenIssuer("other", "club-api").Parse(tok, time.Now())
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		_, _, err := NewTokenIssuer("secret", "someone-else").Parse(tok, time.Now())
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, _, err := iss.Parse("not-a-token", time.Now())
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBroker(t *testing.T) {
	b := NewBroker()
	var got []string
	unsubA := b.Subscribe(func(e Event) { got = append(got, "a:"+string(e.Type)) })
	b.Subscribe(func(e Event) { got = append(got, "b:"+string(e.Type)) })

	b.Publish(Event{Type: EventSignedIn, UserID: 1})
	assert.Equal(t, []string{"a:signed_in", "b:signed_in"}, got)

	unsubA()
	unsubA()
	got = nil
	b.PermissionsChanged(1)
	b.UserDeleted(1)
	assert.Equal(t, []string{"b:permissions_changed", "b:user_deleted"}, got)
}

func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	a := testSession("a", 1, time.Hour)
	b := testSession("b", 1, time.Hour)
	c := testSession("c", 2, time.Hour)
	for _, s := range []*Session{a, b, c} {
		require.NoError(t, store.Save(ctx, s))
	}

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.UserID)
	assert.Equal(t, "org-1", got.OrganizationID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.DeleteByUser(ctx, 1))
	_, err = store.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err = store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(16, time.Hour))

	t.Run("expired session", func(t *testing.T) {
		m := NewMemoryStore(16, time.Hour)
		s := testSession("old", 1, time.Hour)
		s.ExpiresAt = time.Now().Add(-time.Second)
		require.NoError(t, m.Save(context.Background(), s))
		_, err := m.Get(context.Background(), "old")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedisClient(context.Background(), RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, mr := setupRedisStore(t)
	exerciseStore(t, store)

	assert.True(t, mr.Exists("club:session:c"))
	assert.False(t, mr.Exists("club:user_sessions:1"))

	t.Run("ttl follows expiry", func(t *testing.T) {
		require.NoError(t, store.Save(context.Background(), testSession("ttl", 3, time.Minute)))
		ttl := mr.TTL("club:session:ttl")
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)

		mr.FastForward(2 * time.Minute)
		_, err := store.Get(context.Background(), "ttl")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("already expired", func(t *testing.T) {
		s := testSession("past", 3, time.Hour)
		s.ExpiresAt = time.Now().Add(-time.Minute)
		assert.Error(t, store.Save(context.Background(), s))
	})
}

func TestNewRedisClient_Errors(t *testing.T) {
	_, err := NewRedisClient(context.Background(), RedisConfig{URL: "invalid://url"})
	assert.Error(t, err)

	_, err = NewRedisClient(context.Background(), RedisConfig{URL: "redis://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_POOL_SIZE", "7")
	cfg := RedisConfigFromEnv()
	assert.Equal(t, "redis://localhost:6379/0", cfg.URL)
	assert.Equal(t, 7, cfg.PoolSize)
}
