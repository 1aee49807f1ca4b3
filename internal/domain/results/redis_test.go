package results

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: time.Minute,
		Redis: &RedisConfig{
			Addr: mr.Addr(),
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	want := sampleResult()
	if err := store.Put(ctx, "fp-redis", want); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := store.Get(ctx, "fp-redis")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != want {
		t.Fatalf("unexpected cached result: %+v", got)
	}

	_, ok, err = store.Get(ctx, "fp-unknown")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatal("expected miss for unknown fingerprint")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	store, err := NewRedis(Config{
		TTL: 50 * time.Millisecond,
		Redis: &RedisConfig{
			Addr:   mr.Addr(),
			Prefix: "test:result:",
		},
	})
	if err != nil {
		t.Fatalf("NewRedis error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(ctx)
	})

	if err := store.Put(ctx, "fp-ttl", sampleResult()); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	// miniredis does not advance time on its own.
	mr.FastForward(time.Second)

	_, ok, err := store.Get(ctx, "fp-ttl")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if ok {
		t.Fatal("expected entry to expire")
	}
}

func TestRedisStoreRequiresConfig(t *testing.T) {
	if _, err := NewRedis(Config{}); err == nil {
		t.Fatal("expected error without redis config")
	}
	if _, err := NewRedis(Config{Redis: &RedisConfig{}}); err == nil {
		t.Fatal("expected error without redis address")
	}
}
