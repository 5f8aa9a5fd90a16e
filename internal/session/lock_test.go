package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex(t *testing.T) {
	t.Run("serializes one key", func(t *testing.T) {
		km := NewKeyedMutex()
		var inside, maxInside int32
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := km.Lock(context.Background(), "u1")
				if err != nil {
					t.Errorf("Lock: %v", err)
					return
				}
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				unlock()
			}()
		}
		wg.Wait()
		if maxInside != 1 {
			t.Fatalf("%d holders at once", maxInside)
		}
		if km.size() != 0 {
			t.Fatalf("lock entries leaked: %d", km.size())
		}
	})

	t.Run("different keys do not wait", func(t *testing.T) {
		km := NewKeyedMutex()
		unlock, _ := km.Lock(context.Background(), "a")
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		other, err := km.Lock(ctx, "b")
		if err != nil {
			t.Fatalf("Lock(b): %v", err)
		}
		other()
	})

	t.Run("context ends the wait", func(t *testing.T) {
		km := NewKeyedMutex()
		unlock, _ := km.Lock(context.Background(), "a")
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := km.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline, got %v", err)
		}
	})

	t.Run("unlock twice is harmless", func(t *testing.T) {
		km := NewKeyedMutex()
		unlock, _ := km.Lock(context.Background(), "a")
		unlock()
		unlock()
		again, err := km.Lock(context.Background(), "a")
		if err != nil {
			t.Fatalf("Lock: %v", err)
		}
		again()
	})
}
