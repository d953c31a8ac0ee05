package facts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 摘要缓存
type Cache interface {
	Get(ctx context.Context, key string) (*Digest, bool, error)
	Set(ctx context.Context, key string, d *Digest, ttl time.Duration) error
}

// CacheKey 按日期区间生成缓存键
func CacheKey(from, to string) string {
	return "facts:" + from + ":" + to
}

type memoryEntry struct {
	digest  []byte
	expires time.Time
}

// MemoryCache 进程内缓存
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

// Get implements Cache
func (c *MemoryCache) Get(ctx context.Context, key string) (*Digest, bool, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && !c.now().Before(e.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	var d Digest
	if err := json.Unmarshal(e.digest, &d); err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// Set implements Cache
func (c *MemoryCache) Set(ctx context.Context, key string, d *Digest, ttl time.Duration) error {
	// 存序列化结果，避免调用方修改缓存内容
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = memoryEntry{digest: data, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache 基于 Redis 的缓存，多实例共享
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache 连接 Redis 并检查可用性
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisCache{client: rdb, prefix: "news_radar:"}, nil
}

// Get implements Cache
func (c *RedisCache) Get(ctx context.Context, key string) (*Digest, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var d Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// Set implements Cache
func (c *RedisCache) Set(ctx context.Context, key string, d *Digest, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}
