package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"sudooom.fedi.sync/internal/model"
)

// TranslationCache 状态译文缓存，未命中时返回 (nil, nil)
type TranslationCache interface {
	Get(ctx context.Context, accountID model.AccountID, statusID string) (*model.Translation, error)
	Set(ctx context.Context, accountID model.AccountID, statusID string, t *model.Translation) error
	Delete(ctx context.Context, accountID model.AccountID, statusID string) error
}

// RedisTranslationCache 基于 Redis 的译文缓存
type RedisTranslationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisTranslationCache 创建 Redis 译文缓存
func NewRedisTranslationCache(rdb *redis.Client, ttl time.Duration) *RedisTranslationCache {
	if ttl <= 0 {
		ttl = DefaultTranslationTTL
	}
	return &RedisTranslationCache{rdb: rdb, ttl: ttl}
}

func (c *RedisTranslationCache) Get(ctx context.Context, accountID model.AccountID, statusID string) (*model.Translation, error) {
	data, err := c.rdb.Get(ctx, BuildTranslationKey(accountID, statusID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var t model.Translation
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal translation: %w", err)
	}
	return &t, nil
}

func (c *RedisTranslationCache) Set(ctx context.Context, accountID model.AccountID, statusID string, t *model.Translation) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal translation: %w", err)
	}
	return c.rdb.Set(ctx, BuildTranslationKey(accountID, statusID), data, c.ttl).Err()
}

func (c *RedisTranslationCache) Delete(ctx context.Context, accountID model.AccountID, statusID string) error {
	return c.rdb.Del(ctx, BuildTranslationKey(accountID, statusID)).Err()
}

type memoryEntry struct {
	value     model.Translation
	expiresAt time.Time
}

// MemoryTranslationCache 进程内译文缓存
type MemoryTranslationCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryTranslationCache 创建进程内译文缓存
func NewMemoryTranslationCache(ttl time.Duration) *MemoryTranslationCache {
	if ttl <= 0 {
		ttl = DefaultTranslationTTL
	}
	return &MemoryTranslationCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryTranslationCache) Get(_ context.Context, accountID model.AccountID, statusID string) (*model.Translation, error) {
	key := BuildTranslationKey(accountID, statusID)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	t := e.value
	return &t, nil
}

func (c *MemoryTranslationCache) Set(_ context.Context, accountID model.AccountID, statusID string, t *model.Translation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[BuildTranslationKey(accountID, statusID)] = memoryEntry{
		value:     *t,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryTranslationCache) Delete(_ context.Context, accountID model.AccountID, statusID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, BuildTranslationKey(accountID, statusID))
	return nil
}
