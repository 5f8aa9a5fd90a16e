package nav

import (
	"context"
	"time"
)

// Session is one user's position in the graph. At most one flow and one
// collector are active at a time.
type Session struct {
	UserID    int64             `json:"user_id"`
	Screen    ScreenID          `json:"screen"`
	Flow      *FlowState        `json:"flow,omitempty"`
	Collector string            `json:"collector,omitempty"`
	Selection map[string]string `json:"selection,omitempty"`
	Lang      string            `json:"lang,omitempty"`
	Version   int64             `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type FlowState struct {
	ID       FlowID   `json:"id"`
	Instance string   `json:"instance"`
	Origin   ScreenID `json:"origin"`
	Step     int      `json:"step"`
	Answers  []Answer `json:"answers,omitempty"`
}

type Answer struct {
	Field string      `json:"field"`
	Value string      `json:"value"`
	Media *Attachment `json:"media,omitempty"`
}

// Selected returns the selection value for key.
func (s *Session) Selected(key string) string {
	if s.Selection == nil {
		return ""
	}
	return s.Selection[key]
}

func (s *Session) Select(key, value string) {
	if s.Selection == nil {
		s.Selection = make(map[string]string)
	}
	s.Selection[key] = value
}

// Clone returns a deep copy; Step never mutates the session it was given.
func (s *Session) Clone() *Session {
	c := *s
	if s.Selection != nil {
		c.Selection = make(map[string]string, len(s.Selection))
		for k, v := range s.Selection {
			c.Selection[k] = v
		}
	}
	if s.Flow != nil {
		f := *s.Flow
		f.Answers = append([]Answer(nil), s.Flow.Answers...)
		c.Flow = &f
	}
	return &c
}

// SessionStore persists sessions between events. Get returns nil, nil when
// the user has no live session.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Create(ctx context.Context, s *Session) error
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, userID int64) error
	Close() error
}

// Locker serializes events of one user.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
