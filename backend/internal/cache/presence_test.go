package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 9})
	// 若 Redis 未启动则跳过
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() {
		rdb.FlushDB(context.Background())
		rdb.Close()
	})
	return rdb
}

func TestPresence_AddAndList(t *testing.T) {
	p := NewRedisPresence(testClient(t))
	ctx := context.Background()

	if err := p.AddViewer(ctx, "d1", 1, "alice", time.Minute); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}
	if err := p.AddViewer(ctx, "d1", 2, "bob", time.Minute); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}

	viewers, err := p.GetAliveViewers(ctx, "d1")
	if err != nil {
		t.Fatalf("GetAliveViewers() error = %v", err)
	}
	if len(viewers) != 2 {
		t.Fatalf("GetAliveViewers() len = %d, want 2", len(viewers))
	}
}

func TestPresence_ExpiredViewerIsSwept(t *testing.T) {
	p := NewRedisPresence(testClient(t))
	ctx := context.Background()

	if err := p.AddViewer(ctx, "d1", 1, "alice", -time.Second); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}
	if err := p.AddViewer(ctx, "d1", 2, "bob", time.Minute); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}

	viewers, err := p.GetAliveViewers(ctx, "d1")
	if err != nil {
		t.Fatalf("GetAliveViewers() error = %v", err)
	}
	if len(viewers) != 1 || viewers[0].UserID != 2 {
		t.Fatalf("GetAliveViewers() = %+v, want only user 2", viewers)
	}
}

func TestPresence_RemoveViewer(t *testing.T) {
	p := NewRedisPresence(testClient(t))
	ctx := context.Background()

	if err := p.AddViewer(ctx, "d1", 1, "alice", time.Minute); err != nil {
		t.Fatalf("AddViewer() error = %v", err)
	}
	if err := p.RemoveViewer(ctx, "d1", 1); err != nil {
		t.Fatalf("RemoveViewer() error = %v", err)
	}

	viewers, err := p.GetAliveViewers(ctx, "d1")
	if err != nil {
		t.Fatalf("GetAliveViewers() error = %v", err)
	}
	if len(viewers) != 0 {
		t.Fatalf("GetAliveViewers() = %+v, want empty", viewers)
	}
}
