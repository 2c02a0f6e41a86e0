package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"rps-arena/internal/arena"
	"rps-arena/internal/config"
)

func openRedisPool(t *testing.T) *RedisPool {
	t.Helper()
	cfg, err := config.LoadTestRedis()
	if err != nil {
		t.Skipf("skip test redis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.TestRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skip test redis: %v", err)
	}
	prefix := fmt.Sprintf("test:queue:%d", time.Now().UnixNano())
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = client.Del(ctx, keys...).Err()
		}
		_ = client.Close()
	})
	return NewRedisPool(client, prefix)
}

func TestRedisPoolFIFOAndIPs(t *testing.T) {
	p := openRedisPool(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	if err := p.Add(ctx, Entry{PlayerID: "b", Stake: 100, IP: "2.2.2.2", EnqueuedAt: base.Add(time.Second)}); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := p.Add(ctx, Entry{PlayerID: "a", Stake: 100, IP: "1.1.1.1", EnqueuedAt: base}); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := p.Add(ctx, Entry{PlayerID: "a", Stake: 100, EnqueuedAt: base}); !errors.Is(err, arena.ErrAlreadyQueued) {
		t.Fatalf("expected already queued, got %v", err)
	}

	e, ok, err := p.PopOldest(ctx, 100)
	if err != nil || !ok {
		t.Fatalf("pop: ok=%v err=%v", ok, err)
	}
	if e.PlayerID != "a" || e.IP != "1.1.1.1" || !e.EnqueuedAt.Equal(base) {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if n, _ := p.Len(ctx, 100); n != 1 {
		t.Fatalf("len = %d, want 1", n)
	}
}

func TestRedisPoolEvictAndRemove(t *testing.T) {
	p := openRedisPool(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)

	_ = p.Add(ctx, Entry{PlayerID: "old", Stake: 50, EnqueuedAt: base.Add(-20 * time.Second)})
	_ = p.Add(ctx, Entry{PlayerID: "edge", Stake: 50, EnqueuedAt: base.Add(-15 * time.Second)})
	_ = p.Add(ctx, Entry{PlayerID: "new", Stake: 50, EnqueuedAt: base})

	n, err := p.Evict(ctx, 50, base.Add(-15*time.Second))
	if err != nil || n != 2 {
		t.Fatalf("evict: n=%d err=%v", n, err)
	}
	for _, id := range []string{"old", "edge"} {
		if ok, _ := p.Contains(ctx, 50, id); ok {
			t.Fatalf("%s entry should be evicted", id)
		}
	}
	removed, err := p.Remove(ctx, 50, "new")
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	if _, ok, _ := p.PopOldest(ctx, 50); ok {
		t.Fatal("pool should be empty")
	}
}
