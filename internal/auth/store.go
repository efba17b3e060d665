package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionStore persists sessions. Get returns ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) error
}

// RedisConfig selects the Redis server used for sessions.
type RedisConfig struct {
	URL      string
	PoolSize int
}

// RedisConfigFromEnv reads REDIS_URL and REDIS_POOL_SIZE.
func RedisConfigFromEnv() RedisConfig {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	pool, _ := strconv.Atoi(os.Getenv("REDIS_POOL_SIZE"))
	return RedisConfig{URL: url, PoolSize: pool}
}

// NewRedisClient parses the URL and checks connectivity.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisStore keeps sessions as JSON values with a per-user index set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "club:"}
}

func (s *RedisStore) sessionKey(id string) string { return s.prefix + "session:" + id }

func (s *RedisStore) userKey(uid int64) string {
	return s.prefix + "user_sessions:" + strconv.FormatInt(uid, 10)
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(sess.ID), data, ttl)
	pipe.SAdd(ctx, s.userKey(sess.UserID), sess.ID)
	pipe.Expire(ctx, s.userKey(sess.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		s.client.Del(ctx, s.sessionKey(id))
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.sessionKey(id))
	pipe.SRem(ctx, s.userKey(sess.UserID), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) DeleteByUser(ctx context.Context, userID int64) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis smembers failed: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, s.sessionKey(id))
	}
	keys = append(keys, s.userKey(userID))
	return s.client.Del(ctx, keys...).Err()
}

// MemoryStore keeps sessions in a bounded in-process LRU.
// Suitable for a single instance or tests.
type MemoryStore struct {
	cache *lru.LRU[string, *Session]
}

func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStore{cache: lru.NewLRU[string, *Session](size, nil, ttl)}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	cp := *s
	m.cache.Add(s.ID, &cp)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok || s.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

func (m *MemoryStore) DeleteByUser(_ context.Context, userID int64) error {
	for _, key := range m.cache.Keys() {
		if s, ok := m.cache.Peek(key); ok && s.UserID == userID {
			m.cache.Remove(key)
		}
	}
	return nil
}
