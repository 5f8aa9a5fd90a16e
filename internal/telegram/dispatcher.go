package telegram

import (
	"context"
	"sync"
	"time"
)

const (
	defaultIdle  = time.Minute
	defaultLimit = 64
)

// Dispatcher runs one worker goroutine per active user. Events of one user
// are handled strictly in arrival order; different users run in parallel.
// A worker with nothing to do for the idle period exits.
type Dispatcher struct {
	handle func(ctx context.Context, in Incoming)
	idle   time.Duration
	limit  int

	mu      sync.Mutex
	workers map[int64]*userQueue
	wg      sync.WaitGroup
}

type userQueue struct {
	pending []Incoming
	wake    chan struct{}
}

// NewDispatcher builds a dispatcher that keeps at most limit unhandled
// events per user.
func NewDispatcher(handle func(ctx context.Context, in Incoming), idle time.Duration, limit int) *Dispatcher {
	if idle <= 0 {
		idle = defaultIdle
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Dispatcher{
		handle:  handle,
		idle:    idle,
		limit:   limit,
		workers: make(map[int64]*userQueue),
	}
}

// Submit queues in for its user and never blocks. It reports false when
// the user already has limit events waiting; the event is dropped then.
func (d *Dispatcher) Submit(ctx context.Context, in Incoming) bool {
	uid := in.Inbound.User.ID

	d.mu.Lock()
	q, ok := d.workers[uid]
	if !ok {
		q = &userQueue{wake: make(chan struct{}, 1)}
		d.workers[uid] = q
		d.wg.Add(1)
		go d.run(ctx, uid, q)
	}
	if len(q.pending) >= d.limit {
		d.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, in)
	d.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (d *Dispatcher) next(q *userQueue) (Incoming, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(q.pending) == 0 {
		return Incoming{}, false
	}
	in := q.pending[0]
	q.pending[0] = Incoming{}
	q.pending = q.pending[1:]
	return in, true
}

func (d *Dispatcher) run(ctx context.Context, uid int64, q *userQueue) {
	defer d.wg.Done()
	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		if ctx.Err() == nil {
			if in, ok := d.next(q); ok {
				d.handle(ctx, in)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.idle)
				continue
			}
		}

		select {
		case <-q.wake:
		case <-timer.C:
			d.mu.Lock()
			if len(q.pending) == 0 {
				delete(d.workers, uid)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idle)
		case <-ctx.Done():
			d.mu.Lock()
			delete(d.workers, uid)
			d.mu.Unlock()
			return
		}
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Active is the number of users with a live worker.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.workers)
}
