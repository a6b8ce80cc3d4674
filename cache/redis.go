package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisEntryPrefix = "toolcontext:cache:entry:"
	redisHitsPrefix  = "toolcontext:cache:hits:"
)

// RedisStore is a Store backed by a Redis server. Expiry is delegated to
// Redis key TTLs, so expired entries are reclaimed by the server and
// Cleanup is a no-op; the lazy-expiry contract is still honored because
// reads past TTL simply miss.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultRedisConfig returns a config pointing at a local Redis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{Addr: "localhost:6379"}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client. Used by tests.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// redisEntry is the wire form of an Entry stored in Redis.
type redisEntry struct {
	Tool      string         `json:"tool"`
	Hash      string         `json:"hash"`
	Params    map[string]any `json:"params,omitempty"`
	Value     []byte         `json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Get retrieves an entry. A miss after the TTL elapsed behaves identically
// to a lazy-expiry miss in the other stores.
func (s *RedisStore) Get(ctx context.Context, tool, hash string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, redisEntryPrefix+tool+":"+hash).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: redis get: %w", err)
	}

	var re redisEntry
	if err := json.Unmarshal([]byte(raw), &re); err != nil {
		return Entry{}, false, fmt.Errorf("cache: redis decode entry: %w", err)
	}

	e := Entry{
		Tool:      re.Tool,
		Hash:      re.Hash,
		Params:    re.Params,
		Value:     re.Value,
		CreatedAt: re.CreatedAt,
		ExpiresAt: re.ExpiresAt,
	}
	if e.Expired(time.Now()) {
		return Entry{}, false, nil
	}

	hits, err := s.client.Incr(ctx, redisHitsPrefix+tool+":"+hash).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: redis hit count: %w", err)
	}
	e.HitCount = hits

	return e, true, nil
}

// Put stores an entry with a TTL derived from its expiry.
func (s *RedisStore) Put(ctx context.Context, e Entry) error {
	ttl := time.Until(e.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(redisEntry{
		Tool:      e.Tool,
		Hash:      e.Hash,
		Params:    e.Params,
		Value:     e.Value,
		CreatedAt: e.CreatedAt,
		ExpiresAt: e.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("cache: redis encode entry: %w", err)
	}

	key := e.Tool + ":" + e.Hash
	if err := s.client.Set(ctx, redisEntryPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis put: %w", err)
	}
	if e.HitCount > 0 {
		if err := s.client.Set(ctx, redisHitsPrefix+key, e.HitCount, ttl).Err(); err != nil {
			return fmt.Errorf("cache: redis put hits: %w", err)
		}
	} else if err := s.client.Expire(ctx, redisHitsPrefix+key, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis expire hits: %w", err)
	}
	return nil
}

// Delete removes an entry. Idempotent - no error on miss.
func (s *RedisStore) Delete(ctx context.Context, tool, hash string) error {
	key := tool + ":" + hash
	if err := s.client.Del(ctx, redisEntryPrefix+key, redisHitsPrefix+key).Err(); err != nil {
		return fmt.Errorf("cache: redis delete: %w", err)
	}
	return nil
}

// Cleanup is a no-op: Redis reclaims expired keys itself.
func (s *RedisStore) Cleanup(_ context.Context) (int, error) {
	return 0, nil
}

// Stats returns a snapshot of the store's contents. Redis never surfaces
// expired keys, so ExpiredEntries is always zero for this backend.
func (s *RedisStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, redisEntryPrefix+"*", 100).Result()
		if err != nil {
			return Stats{}, fmt.Errorf("cache: redis stats scan: %w", err)
		}
		st.TotalEntries += int64(len(keys))
		st.ValidEntries += int64(len(keys))

		for _, key := range keys {
			hitsKey := redisHitsPrefix + key[len(redisEntryPrefix):]
			hits, err := s.client.Get(ctx, hitsKey).Int64()
			if err != nil && err != redis.Nil {
				return Stats{}, fmt.Errorf("cache: redis stats hits: %w", err)
			}
			st.TotalHits += hits
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}
	return st, nil
}

// Clear removes all entries under this store's prefixes.
func (s *RedisStore) Clear(ctx context.Context) error {
	for _, prefix := range []string{redisEntryPrefix, redisHitsPrefix} {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
			if err != nil {
				return fmt.Errorf("cache: redis clear scan: %w", err)
			}
			if len(keys) > 0 {
				if err := s.client.Del(ctx, keys...).Err(); err != nil {
					return fmt.Errorf("cache: redis clear del: %w", err)
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return nil
}

// Close releases the client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
