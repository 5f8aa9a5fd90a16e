package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-storefront-bot/internal/nav"
)

// Incoming is a decoded update plus the addresses needed to answer it.
type Incoming struct {
	Inbound    nav.Inbound
	ChatID     int64
	MessageID  int
	CallbackID string
}

// Decode turns an update into an engine event. Updates the bots do not
// react to (edits, channel posts, service messages) report false.
func Decode(update tgbotapi.Update) (Incoming, bool) {
	if cb := update.CallbackQuery; cb != nil {
		if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
			return Incoming{}, false
		}
		// Undecodable data still gets an answer: the empty action matches no
		// transition and renders the unknown selection notice.
		action, _ := nav.ParseAction(cb.Data)
		return Incoming{
			Inbound:    nav.Inbound{User: user(cb.From), Event: nav.ButtonPress{Action: action}},
			ChatID:     cb.Message.Chat.ID,
			MessageID:  cb.Message.MessageID,
			CallbackID: cb.ID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return Incoming{}, false
	}
	in := Incoming{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	in.Inbound.User = user(msg.From)

	if msg.IsCommand() {
		in.Inbound.Event = nav.CommandMessage{Name: msg.Command(), Args: msg.CommandArguments()}
		return in, true
	}

	text := nav.TextMessage{Text: msg.Text}
	switch {
	case len(msg.Photo) > 0:
		// Sizes are ordered smallest first.
		largest := msg.Photo[len(msg.Photo)-1]
		text.Attachment = &nav.Attachment{Kind: nav.AttachPhoto, FileID: largest.FileID, Caption: msg.Caption, MIME: "image/jpeg"}
	case msg.Video != nil:
		text.Attachment = &nav.Attachment{Kind: nav.AttachVideo, FileID: msg.Video.FileID, Caption: msg.Caption, FileName: msg.Video.FileName, MIME: msg.Video.MimeType}
	case msg.Document != nil:
		text.Attachment = &nav.Attachment{Kind: nav.AttachDocument, FileID: msg.Document.FileID, Caption: msg.Caption, FileName: msg.Document.FileName, MIME: msg.Document.MimeType}
	}
	in.Inbound.Event = text
	return in, true
}

func user(u *tgbotapi.User) nav.User {
	return nav.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}
