package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"telegram-storefront-bot/internal/nav"
)

// Needs a disposable redis: TEST_REDIS_ADDR=localhost:6379 go test ./internal/session
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestRedisStore(t *testing.T) {
	client := testRedis(t)
	ctx := context.Background()
	s := NewRedisStore(client, time.Minute)

	if err := s.Create(ctx, &nav.Session{UserID: 7, Screen: "main", Lang: "en"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	a, err := s.Get(ctx, 7)
	if err != nil || a == nil || a.Lang != "en" {
		t.Fatalf("Get = %+v, %v", a, err)
	}
	b, _ := s.Get(ctx, 7)

	a.Flow = &nav.FlowState{ID: "order", Instance: "i-1", Origin: "main"}
	if err := s.Update(ctx, a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Update(ctx, b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := s.Get(ctx, 7)
	if got.Flow == nil || got.Flow.Instance != "i-1" {
		t.Fatalf("flow not persisted: %+v", got)
	}
	if ttl := client.TTL(ctx, "session:7").Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	if err := s.Delete(ctx, 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := s.Get(ctx, 7); got != nil {
		t.Fatalf("deleted session still there")
	}
}

func TestRedisLocker(t *testing.T) {
	client := testRedis(t)
	l := NewRedisLocker(client, time.Second)

	unlock, err := l.Lock(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "u1"); err == nil {
		t.Fatal("second holder obtained the lock")
	}
	unlock()

	again, err := l.Lock(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}

func TestRedisLockerOutlivesTTL(t *testing.T) {
	client := testRedis(t)
	l := NewRedisLocker(client, 200*time.Millisecond)

	unlock, err := l.Lock(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	// A handler running for several lease periods still holds the lock.
	time.Sleep(700 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "slow"); err == nil {
		t.Fatal("lock expired while still held")
	}
	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "slow")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	again()
}
