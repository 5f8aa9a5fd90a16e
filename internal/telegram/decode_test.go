package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-storefront-bot/internal/nav"
)

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 5,
		From:      &tgbotapi.User{ID: 42, UserName: "ann"},
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      text,
	}
}

func TestDecode(t *testing.T) {
	t.Run("callback", func(t *testing.T) {
		in, ok := Decode(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb1",
			From:    &tgbotapi.User{ID: 42},
			Message: message(""),
			Data:    "cur:RUB",
		}})
		if !ok {
			t.Fatal("callback ignored")
		}
		press, isPress := in.Inbound.Event.(nav.ButtonPress)
		if !isPress || press.Action != (nav.Action{ID: "cur", Arg: "RUB"}) {
			t.Fatalf("unexpected event %#v", in.Inbound.Event)
		}
		if in.CallbackID != "cb1" || in.MessageID != 5 || in.ChatID != 42 {
			t.Fatalf("unexpected addresses %+v", in)
		}
	})

	t.Run("garbage callback still answered", func(t *testing.T) {
		in, ok := Decode(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
			ID: "cb2", From: &tgbotapi.User{ID: 42}, Message: message(""), Data: "",
		}})
		if !ok {
			t.Fatal("callback ignored")
		}
		if press := in.Inbound.Event.(nav.ButtonPress); press.Action.ID != "" {
			t.Fatalf("expected empty action, got %+v", press.Action)
		}
	})

	t.Run("command", func(t *testing.T) {
		msg := message("/setstatus 12 done")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 10}}
		in, ok := Decode(tgbotapi.Update{Message: msg})
		if !ok {
			t.Fatal("command ignored")
		}
		cmd, isCmd := in.Inbound.Event.(nav.CommandMessage)
		if !isCmd || cmd.Name != "setstatus" || cmd.Args != "12 done" {
			t.Fatalf("unexpected event %#v", in.Inbound.Event)
		}
	})

	t.Run("text", func(t *testing.T) {
		in, _ := Decode(tgbotapi.Update{Message: message("iPhone 13")})
		txt, isText := in.Inbound.Event.(nav.TextMessage)
		if !isText || txt.Text != "iPhone 13" || txt.Attachment != nil {
			t.Fatalf("unexpected event %#v", in.Inbound.Event)
		}
		if in.Inbound.User.Username != "ann" {
			t.Fatalf("user not decoded: %+v", in.Inbound.User)
		}
	})

	t.Run("photo takes the largest size", func(t *testing.T) {
		msg := message("")
		msg.Caption = "paid"
		msg.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
		in, _ := Decode(tgbotapi.Update{Message: msg})
		txt := in.Inbound.Event.(nav.TextMessage)
		if txt.Attachment == nil || txt.Attachment.FileID != "large" || txt.Attachment.Caption != "paid" || txt.Attachment.Kind != nav.AttachPhoto {
			t.Fatalf("unexpected attachment %+v", txt.Attachment)
		}
	})

	t.Run("document", func(t *testing.T) {
		msg := message("")
		msg.Document = &tgbotapi.Document{FileID: "doc", FileName: "receipt.pdf", MimeType: "application/pdf"}
		in, _ := Decode(tgbotapi.Update{Message: msg})
		txt := in.Inbound.Event.(nav.TextMessage)
		if txt.Attachment == nil || txt.Attachment.Kind != nav.AttachDocument || txt.Attachment.FileName != "receipt.pdf" {
			t.Fatalf("unexpected attachment %+v", txt.Attachment)
		}
	})

	t.Run("ignored updates", func(t *testing.T) {
		if _, ok := Decode(tgbotapi.Update{}); ok {
			t.Fatal("empty update decoded")
		}
		if _, ok := Decode(tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}}); ok {
			t.Fatal("message without sender decoded")
		}
	})
}
