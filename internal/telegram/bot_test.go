package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/mock/gomock"

	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/notify"
	"telegram-storefront-bot/internal/telegram/mocks"
)

type handlerFunc func(ctx context.Context, in nav.Inbound) (nav.Render, error)

func (f handlerFunc) Handle(ctx context.Context, in nav.Inbound) (nav.Render, error) {
	return f(ctx, in)
}

func testBot(api API, h Handler) *Bot {
	return &Bot{
		api:     &tgbotapi.BotAPI{Token: "123:secret"},
		client:  api,
		handler: h,
		sink:    NewSink(api, quietLogger()),
		logger:  quietLogger(),
		failure: "failed",
		busy:    "busy",
	}
}

func TestBot_Send(t *testing.T) {
	cases := []struct {
		name  string
		msg   notify.Message
		check func(c tgbotapi.Chattable) bool
	}{
		{"text", notify.Message{Text: "hi"}, func(c tgbotapi.Chattable) bool {
			m, ok := c.(tgbotapi.MessageConfig)
			return ok && m.Text == "hi" && m.ChatID == 5
		}},
		{"photo", notify.Message{Text: "proof", Media: &notify.Media{Kind: notify.MediaPhoto, FileID: "p"}}, func(c tgbotapi.Chattable) bool {
			m, ok := c.(tgbotapi.PhotoConfig)
			return ok && m.Caption == "proof" && m.ChatID == 5
		}},
		{"video", notify.Message{Text: "rev", Media: &notify.Media{Kind: notify.MediaVideo, FileID: "v"}}, func(c tgbotapi.Chattable) bool {
			m, ok := c.(tgbotapi.VideoConfig)
			return ok && m.Caption == "rev"
		}},
		{"document", notify.Message{Text: "pdf", Media: &notify.Media{Kind: notify.MediaDocument, FileID: "d"}}, func(c tgbotapi.Chattable) bool {
			m, ok := c.(tgbotapi.DocumentConfig)
			return ok && m.Caption == "pdf"
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			api := mocks.NewMockAPI(ctrl)
			api.EXPECT().Send(gomock.Any()).DoAndReturn(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
				if !tc.check(c) {
					t.Fatalf("unexpected config %#v", c)
				}
				return tgbotapi.Message{}, nil
			})
			if err := testBot(api, nil).Send(context.Background(), 5, tc.msg); err != nil {
				t.Fatalf("Send: %v", err)
			}
		})
	}

	t.Run("error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		api := mocks.NewMockAPI(ctrl)
		api.EXPECT().Send(gomock.Any()).Return(tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user"))
		if err := testBot(api, nil).Send(context.Background(), 5, notify.Message{Text: "x"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBot_ProcessHandlerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Send(gomock.Any()).DoAndReturn(func(c tgbotapi.Chattable) (tgbotapi.Message, error) {
		if c.(tgbotapi.MessageConfig).Text != "failed" {
			t.Fatalf("unexpected message %#v", c)
		}
		return tgbotapi.Message{}, nil
	})

	b := testBot(api, handlerFunc(func(context.Context, nav.Inbound) (nav.Render, error) {
		return nav.Render{}, errors.New("redis down")
	}))
	b.process(context.Background(), typed())
}

func pressUpdate(callbackID string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      callbackID,
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "prices",
	}}
}

func TestBot_DispatchFullQueueAnswersBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Request(tgbotapi.NewCallback("cb3", "busy")).Return(&tgbotapi.APIResponse{Ok: true}, nil)

	b := testBot(api, nil)
	started := make(chan struct{}, 3)
	release := make(chan struct{})
	d := NewDispatcher(func(context.Context, Incoming) {
		started <- struct{}{}
		<-release
	}, 10*time.Millisecond, 1)

	ctx := context.Background()
	b.dispatch(ctx, d, pressUpdate("cb1"))
	<-started
	// cb2 waits behind cb1, cb3 does not fit.
	b.dispatch(ctx, d, pressUpdate("cb2"))
	b.dispatch(ctx, d, pressUpdate("cb3"))

	close(release)
	d.Wait()
}

type graphHandler struct {
	handlerFunc
	graph *nav.Graph
}

func (h graphHandler) Graph() *nav.Graph { return h.graph }

func TestBot_SetHandlerUsesGraphTexts(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := testBot(mocks.NewMockAPI(ctrl), nil)
	g := nav.NewGraph("main", nav.WithTexts(func(string) nav.Texts {
		return nav.Texts{Failed: "сбой", Busy: "подождите"}
	}))

	b.SetHandler(graphHandler{graph: g})
	if b.failure != "сбой" || b.sink.fallback != "сбой" || b.busy != "подождите" {
		t.Fatalf("texts not taken from the graph: %q %q %q", b.failure, b.sink.fallback, b.busy)
	}
}

func TestBot_Router(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Send(gomock.Any()).Return(tgbotapi.Message{}, nil)

	got := make(chan nav.Inbound, 1)
	b := testBot(api, handlerFunc(func(_ context.Context, in nav.Inbound) (nav.Render, error) {
		got <- in
		return nav.Render{Text: "main"}, nil
	}))
	d := NewDispatcher(b.process, 10*time.Millisecond, 0)
	router := b.Router(context.Background(), d)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}

	body := `{"update_id":1,"message":{"message_id":3,"from":{"id":42,"is_bot":false,"first_name":"A"},"chat":{"id":42,"type":"private"},"date":0,"text":"hello"}}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath("123:secret"), strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook = %d", rec.Code)
	}

	select {
	case in := <-got:
		if in.User.ID != 42 || in.Event.(nav.TextMessage).Text != "hello" {
			t.Fatalf("unexpected inbound %+v", in)
		}
	case <-time.After(time.Second):
		t.Fatal("update not dispatched")
	}
	d.Wait()

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/123:secret", strings.NewReader(body)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("raw token path served: %d", rec.Code)
	}
}

func TestWebhookPath(t *testing.T) {
	p := WebhookPath("123:secret")
	if !strings.HasPrefix(p, "/telegram/") || strings.Contains(p, "secret") || p != WebhookPath("123:secret") {
		t.Fatalf("unexpected path %q", p)
	}
}
