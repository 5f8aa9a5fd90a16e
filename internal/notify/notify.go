// Package notify delivers best-effort messages to the administrator set.
// A failed delivery is logged per recipient and never reported back to the
// user whose action produced the message.
package notify

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mocks/mock_notify.go -package=mocks telegram-storefront-bot/internal/notify Sender,Notifier,Enqueuer

type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// Media references a file already uploaded to the messaging platform.
type Media struct {
	Kind   MediaKind `json:"kind"`
	FileID string    `json:"file_id"`
}

// Message is what administrators receive. When Media is set Text becomes its
// caption.
type Message struct {
	Text  string `json:"text"`
	Media *Media `json:"media,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// ErrUndelivered is returned when no administrator received the message.
var ErrUndelivered = errors.New("notification not delivered")

// Direct sends to every administrator in turn through Sender.
type Direct struct {
	sender Sender
	admins []int64
	logger logrus.FieldLogger
}

var _ Notifier = (*Direct)(nil)

func NewDirect(sender Sender, admins []int64, logger logrus.FieldLogger) *Direct {
	return &Direct{sender: sender, admins: admins, logger: logger}
}

func (d *Direct) Notify(ctx context.Context, msg Message) error {
	if len(d.admins) == 0 {
		return nil
	}
	delivered := 0
	for _, chatID := range d.admins {
		if err := d.sender.Send(ctx, chatID, msg); err != nil {
			d.logger.WithFields(logrus.Fields{
				"recipient": chatID,
				"error":     err.Error(),
			}).Warn("admin notification failed")
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return ErrUndelivered
	}
	return nil
}

// Nop drops every message. Used when no administrators are configured.
type Nop struct{}

func (Nop) Notify(context.Context, Message) error { return nil }
