package session

import (
	"context"
	"sync"
	"time"

	"telegram-storefront-bot/internal/nav"
)

var _ nav.SessionStore = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Sessions idle for longer
// than the TTL are dropped on read and by Sweep. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]*nav.Session
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*nav.Session),
	}
}

func (s *MemoryStore) expired(data *nav.Session) bool {
	return s.now().Sub(data.UpdatedAt) > s.ttl
}

// Create stores data with Version 1.
func (s *MemoryStore) Create(ctx context.Context, data *nav.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	data.CreatedAt = now
	data.UpdatedAt = now
	data.Version = 1

	s.sessions[data.UserID] = data.Clone()
	return nil
}

// Get returns a copy of the session, or nil when absent or idle too long.
func (s *MemoryStore) Get(ctx context.Context, userID int64) (*nav.Session, error) {
	s.mu.RLock()
	data, exists := s.sessions[userID]
	s.mu.RUnlock()
	if !exists {
		return nil, nil
	}
	if s.expired(data) {
		s.mu.Lock()
		if cur, ok := s.sessions[userID]; ok && cur == data {
			delete(s.sessions, userID)
		}
		s.mu.Unlock()
		return nil, nil
	}
	return data.Clone(), nil
}

// Update stores data if its Version matches the stored one, then bumps it.
func (s *MemoryStore) Update(ctx context.Context, data *nav.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[data.UserID]
	if !exists {
		// Expired between load and save: start over as a new record.
		now := s.now()
		data.CreatedAt = now
		data.UpdatedAt = now
		data.Version = 1
		s.sessions[data.UserID] = data.Clone()
		return nil
	}
	if stored.Version != data.Version {
		return ErrVersionConflict
	}

	data.Version++
	data.UpdatedAt = s.now()
	s.sessions[data.UserID] = data.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[int64]*nav.Session)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops every idle session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, data := range s.sessions {
		if s.expired(data) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
