package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/nav"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks telegram-storefront-bot/internal/telegram API

// API is the part of *tgbotapi.BotAPI the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

var _ API = (*tgbotapi.BotAPI)(nil)

// Telegram accepts at most ten items per media group.
const maxAlbum = 10

// Sink draws renders into chats. It remembers the last album sent to each
// chat so the next screen can remove it.
type Sink struct {
	api    API
	logger logrus.FieldLogger
	albums *lru.Cache[int64, []int]
	// fallback is sent without a keyboard when a screen cannot be shown.
	fallback string
}

func NewSink(api API, logger logrus.FieldLogger) *Sink {
	albums, _ := lru.New[int64, []int](4096)
	return &Sink{api: api, logger: logger, albums: albums, fallback: nav.DefaultTexts("").Failed}
}

// Deliver answers the callback (if any) and shows r. Telegram errors are
// logged and swallowed; there is nobody to report them to.
func (s *Sink) Deliver(in Incoming, r nav.Render) {
	log := s.logger.WithFields(logrus.Fields{"chat_id": in.ChatID, "user_id": in.Inbound.User.ID})
	pressed := in.CallbackID != ""

	if pressed {
		answer := r.Notice
		if answer == "" {
			answer = r.Ack
		}
		if _, err := s.api.Request(tgbotapi.NewCallback(in.CallbackID, answer)); err != nil {
			log.WithField("error", err.Error()).Debug("answer callback failed")
		}
	}

	text := r.Text
	if !pressed && r.Notice != "" {
		text = joinText(r.Notice, r.Text)
	}
	if text == "" {
		return
	}
	markup := keyboard(r.Keyboard)

	if len(r.Album) > 0 {
		s.dropAlbum(in.ChatID, log)
		if pressed {
			s.delete(in.ChatID, in.MessageID, log)
		}
		s.sendAlbum(in.ChatID, r.Album, log)
		s.show(in.ChatID, text, markup, log)
		return
	}

	if pressed {
		s.dropAlbum(in.ChatID, log)
	}
	if pressed && !r.Fresh {
		if s.edit(in.ChatID, in.MessageID, text, markup, log) {
			return
		}
	}
	s.show(in.ChatID, text, markup, log)
}

// show sends text and falls back to the plain failure text, so the user is
// never left without an answer.
func (s *Sink) show(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup, log logrus.FieldLogger) {
	if s.send(chatID, text, markup, log) || s.fallback == "" {
		return
	}
	s.send(chatID, s.fallback, nil, log)
}

func (s *Sink) edit(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup, log logrus.FieldLogger) bool {
	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	_, err := s.api.Request(edit)
	if err == nil {
		return true
	}
	// Re-rendering the same screen (unknown selection) is not a failure.
	if strings.Contains(err.Error(), "message is not modified") {
		return true
	}
	log.WithField("error", err.Error()).Debug("edit failed, sending a new message")
	return false
}

func (s *Sink) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup, log logrus.FieldLogger) bool {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := s.api.Send(msg); err != nil {
		log.WithField("error", err.Error()).Warn("send message failed")
		return false
	}
	return true
}

func (s *Sink) sendAlbum(chatID int64, items []nav.Attachment, log logrus.FieldLogger) {
	if len(items) > maxAlbum {
		items = items[:maxAlbum]
	}
	media := make([]interface{}, 0, len(items))
	for _, it := range items {
		switch it.Kind {
		case nav.AttachVideo:
			v := tgbotapi.NewInputMediaVideo(tgbotapi.FileID(it.FileID))
			v.Caption = it.Caption
			media = append(media, v)
		case nav.AttachDocument:
			d := tgbotapi.NewInputMediaDocument(tgbotapi.FileID(it.FileID))
			d.Caption = it.Caption
			media = append(media, d)
		default:
			p := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID(it.FileID))
			p.Caption = it.Caption
			media = append(media, p)
		}
	}
	sent, err := s.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
	if err != nil {
		log.WithField("error", err.Error()).Warn("send album failed")
		return
	}
	ids := make([]int, 0, len(sent))
	for _, m := range sent {
		ids = append(ids, m.MessageID)
	}
	s.albums.Add(chatID, ids)
}

func (s *Sink) dropAlbum(chatID int64, log logrus.FieldLogger) {
	ids, ok := s.albums.Get(chatID)
	if !ok {
		return
	}
	s.albums.Remove(chatID)
	for _, id := range ids {
		s.delete(chatID, id, log)
	}
}

func (s *Sink) delete(chatID int64, messageID int, log logrus.FieldLogger) {
	if messageID == 0 {
		return
	}
	if _, err := s.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		log.WithFields(logrus.Fields{"message_id": messageID, "error": err.Error()}).Debug("delete message failed")
	}
}

func keyboard(rows [][]nav.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Action.Data()))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	if len(out) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(out...)
	return &markup
}

func joinText(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
	}
	return b.String()
}
