package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"sudooom.fedi.sync/internal/model"
)

// getTestRedisClient 获取测试用 Redis 客户端，无法连接时跳过
func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("跳过测试：无法连接 Redis: %v", err)
	}
	client.FlushDB(ctx)
	return client
}

func exerciseCache(t *testing.T, c TranslationCache) {
	ctx := context.Background()

	got, err := c.Get(ctx, 1, "s1")
	if err != nil || got != nil {
		t.Fatalf("Get on empty cache = %v, %v; want nil, nil", got, err)
	}

	want := &model.Translation{Content: "<p>hello</p>", DetectedSourceLanguage: "de", Provider: "DeepL"}
	if err := c.Set(ctx, 1, "s1", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = c.Get(ctx, 1, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Content != want.Content || got.Provider != want.Provider {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}

	// 账号之间互不可见
	if other, _ := c.Get(ctx, 2, "s1"); other != nil {
		t.Fatalf("translation leaked across accounts: %+v", other)
	}

	if err := c.Delete(ctx, 1, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := c.Get(ctx, 1, "s1"); got != nil {
		t.Fatalf("Get after delete = %+v", got)
	}
}

func TestMemoryTranslationCache(t *testing.T) {
	exerciseCache(t, NewMemoryTranslationCache(time.Minute))
}

func TestMemoryTranslationCacheExpiry(t *testing.T) {
	c := NewMemoryTranslationCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	_ = c.Set(context.Background(), 1, "s1", &model.Translation{Content: "x"})
	now = now.Add(2 * time.Minute)

	if got, _ := c.Get(context.Background(), 1, "s1"); got != nil {
		t.Fatalf("expired entry returned: %+v", got)
	}
}

func TestRedisTranslationCache(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	exerciseCache(t, NewRedisTranslationCache(client, time.Minute))

	c := NewRedisTranslationCache(client, time.Minute)
	_ = c.Set(context.Background(), 7, "s7", &model.Translation{Content: "x"})
	ttl := client.TTL(context.Background(), BuildTranslationKey(7, "s7")).Val()
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("ttl = %v, want (0, 1m]", ttl)
	}
}

func TestBuildTranslationKey(t *testing.T) {
	if got := BuildTranslationKey(12, "abc"); got != "fedisync:translation:12:abc" {
		t.Fatalf("BuildTranslationKey = %s", got)
	}
}
