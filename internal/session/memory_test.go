package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"telegram-storefront-bot/internal/nav"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newClockedStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(ttl)
	s.now = clock.now
	return s, clock
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create get update", func(t *testing.T) {
		s, _ := newClockedStore(time.Minute)
		if err := s.Create(ctx, &nav.Session{UserID: 1, Screen: "main"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := s.Get(ctx, 1)
		if err != nil || got == nil || got.Version != 1 || got.Screen != "main" {
			t.Fatalf("Get = %+v, %v", got, err)
		}
		got.Screen = "prices"
		if err := s.Update(ctx, got); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Version != 2 {
			t.Fatalf("version not bumped: %d", got.Version)
		}
	})

	t.Run("returned sessions are copies", func(t *testing.T) {
		s, _ := newClockedStore(time.Minute)
		_ = s.Create(ctx, &nav.Session{UserID: 1, Screen: "main"})
		got, _ := s.Get(ctx, 1)
		got.Select("currency", "RUB")
		got.Screen = "elsewhere"

		again, _ := s.Get(ctx, 1)
		if again.Screen != "main" || again.Selected("currency") != "" {
			t.Fatalf("stored session changed without Update: %+v", again)
		}
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		s, _ := newClockedStore(time.Minute)
		_ = s.Create(ctx, &nav.Session{UserID: 1})
		a, _ := s.Get(ctx, 1)
		b, _ := s.Get(ctx, 1)
		if err := s.Update(ctx, a); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if err := s.Update(ctx, b); !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("idle sessions expire on read", func(t *testing.T) {
		s, clock := newClockedStore(time.Minute)
		_ = s.Create(ctx, &nav.Session{UserID: 1, Flow: &nav.FlowState{ID: "order"}})
		clock.t = clock.t.Add(59 * time.Second)
		if got, _ := s.Get(ctx, 1); got == nil {
			t.Fatal("session expired too early")
		}
		clock.t = clock.t.Add(2 * time.Minute)
		if got, _ := s.Get(ctx, 1); got != nil {
			t.Fatalf("expected expired session, got %+v", got)
		}
		if s.Len() != 0 {
			t.Fatalf("expired session still held")
		}
	})

	t.Run("sweep", func(t *testing.T) {
		s, clock := newClockedStore(time.Minute)
		_ = s.Create(ctx, &nav.Session{UserID: 1})
		clock.t = clock.t.Add(30 * time.Second)
		_ = s.Create(ctx, &nav.Session{UserID: 2})
		clock.t = clock.t.Add(45 * time.Second)

		if n := s.Sweep(); n != 1 {
			t.Fatalf("Sweep removed %d, want 1", n)
		}
		if got, _ := s.Get(ctx, 2); got == nil {
			t.Fatal("fresh session swept")
		}
	})

	t.Run("update after expiry recreates", func(t *testing.T) {
		s, clock := newClockedStore(time.Minute)
		_ = s.Create(ctx, &nav.Session{UserID: 1})
		got, _ := s.Get(ctx, 1)
		clock.t = clock.t.Add(2 * time.Minute)
		s.Sweep()
		if err := s.Update(ctx, got); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Version != 1 {
			t.Fatalf("expected fresh version 1, got %d", got.Version)
		}
	})
}

func TestNewStore(t *testing.T) {
	if _, err := NewStore(StoreTypeMemory, WithTTL(time.Minute)); err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, err := NewStore(StoreTypeRedis); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := NewStore("etcd"); !errors.Is(err, ErrInvalidStoreType) {
		t.Fatalf("expected ErrInvalidStoreType, got %v", err)
	}
}
