package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"telegram-storefront-bot/internal/nav"
)

func incoming(userID int64, text string) Incoming {
	return Incoming{
		Inbound: nav.Inbound{User: nav.User{ID: userID}, Event: nav.TextMessage{Text: text}},
		ChatID:  userID,
	}
}

func TestDispatcher_PerUserOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	seen := map[int64][]string{}
	d := NewDispatcher(func(_ context.Context, in Incoming) {
		// Later events must not overtake a slow earlier one.
		if in.Inbound.Event.(nav.TextMessage).Text == "0" {
			time.Sleep(5 * time.Millisecond)
		}
		mu.Lock()
		seen[in.Inbound.User.ID] = append(seen[in.Inbound.User.ID], in.Inbound.Event.(nav.TextMessage).Text)
		mu.Unlock()
	}, 20*time.Millisecond, 0)

	ctx := context.Background()
	texts := []string{"0", "1", "2", "3", "4", "5", "6", "7"}
	var wg sync.WaitGroup
	for _, uid := range []int64{1, 2, 3} {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			for _, txt := range texts {
				d.Submit(ctx, incoming(uid, txt))
			}
		}(uid)
	}
	wg.Wait()
	d.Wait()

	for _, uid := range []int64{1, 2, 3} {
		got := seen[uid]
		if len(got) != len(texts) {
			t.Fatalf("user %d: got %d events", uid, len(got))
		}
		for i := range texts {
			if got[i] != texts[i] {
				t.Fatalf("user %d: out of order %v", uid, got)
			}
		}
	}
	if d.Active() != 0 {
		t.Fatalf("idle workers did not exit: %d", d.Active())
	}
}

func TestDispatcher_UsersRunInParallel(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	done := make(chan int64, 2)
	d := NewDispatcher(func(_ context.Context, in Incoming) {
		if in.Inbound.User.ID == 1 {
			<-release
		}
		done <- in.Inbound.User.ID
	}, 10*time.Millisecond, 0)

	ctx := context.Background()
	d.Submit(ctx, incoming(1, "slow"))
	d.Submit(ctx, incoming(2, "fast"))

	select {
	case id := <-done:
		if id != 2 {
			t.Fatalf("user %d finished first", id)
		}
	case <-time.After(time.Second):
		t.Fatal("user 2 blocked behind user 1")
	}
	close(release)
	<-done
	d.Wait()
}

func TestDispatcher_StopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(func(context.Context, Incoming) {}, time.Hour, 0)
	d.Submit(ctx, incoming(1, "x"))
	cancel()
	d.Wait()
}

func TestDispatcher_FullQueueDoesNotBlockOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	served := make(chan struct{})
	d := NewDispatcher(func(_ context.Context, in Incoming) {
		if in.Inbound.User.ID == 1 {
			<-release
			return
		}
		close(served)
	}, 10*time.Millisecond, 16)

	ctx := context.Background()
	submitted := make(chan int, 1)
	go func() {
		dropped := 0
		for i := 0; i < 18; i++ {
			if !d.Submit(ctx, incoming(1, "flood")) {
				dropped++
			}
		}
		if !d.Submit(ctx, incoming(2, "hello")) {
			dropped += 100
		}
		submitted <- dropped
	}()

	select {
	case dropped := <-submitted:
		if dropped == 0 || dropped >= 100 {
			t.Fatalf("dropped = %d, want user 1 overflow dropped and user 2 accepted", dropped)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("user 2 not served while user 1 is busy")
	}
	close(release)
	d.Wait()
}
