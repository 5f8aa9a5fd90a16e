// Package telegram connects the navigation engine to the Telegram Bot API:
// it decodes updates, serializes them per user, renders the engine's answer
// and sends administrator notifications.
package telegram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/notify"
)

// Handler is the engine as seen by the adapter.
type Handler interface {
	Handle(ctx context.Context, in nav.Inbound) (nav.Render, error)
}

type Options struct {
	// WebhookURL switches from long polling to a webhook served on Addr.
	WebhookURL string
	Addr       string
	// IdleWorker is how long a user's worker waits for the next event.
	IdleWorker time.Duration
}

type Bot struct {
	api     *tgbotapi.BotAPI
	client  API
	handler Handler
	sink    *Sink
	logger  logrus.FieldLogger
	http    *http.Client
	failure string
	busy    string
}

var _ notify.Sender = (*Bot)(nil)

func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	return api, nil
}

func NewBot(api *tgbotapi.BotAPI, logger logrus.FieldLogger) *Bot {
	return &Bot{
		api:     api,
		client:  api,
		sink:    NewSink(api, logger),
		logger:  logger,
		http:    &http.Client{Timeout: time.Minute},
		failure: nav.DefaultTexts("").Failed,
		busy:    nav.DefaultTexts("").Busy,
	}
}

func (b *Bot) UserName() string { return b.api.Self.UserName }

// SetHandler attaches the engine. The bot can send notifications before
// the engine exists, the engine needs the bot as its sender.
// The failure and busy answers come from the engine's graph when it has one.
func (b *Bot) SetHandler(h Handler) {
	b.handler = h
	e, ok := h.(interface{ Graph() *nav.Graph })
	if !ok {
		return
	}
	t := e.Graph().Texts("")
	if t.Failed != "" {
		b.failure = t.Failed
		b.sink.fallback = t.Failed
	}
	if t.Busy != "" {
		b.busy = t.Busy
	}
}

// Run receives updates until ctx is done.
func (b *Bot) Run(ctx context.Context, opts Options) error {
	if b.handler == nil {
		return errors.New("telegram bot has no handler")
	}
	d := NewDispatcher(b.process, opts.IdleWorker, 0)
	defer d.Wait()

	if opts.WebhookURL != "" {
		return b.serveWebhook(ctx, d, opts)
	}
	return b.poll(ctx, d)
}

func (b *Bot) poll(ctx context.Context, d *Dispatcher) error {
	// Updates that arrived while the bot was down belong to stale screens.
	if _, err := b.client.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		b.logger.WithField("error", err.Error()).Warn("delete webhook failed")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	b.logger.WithField("bot", b.api.Self.UserName).Info("polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			// Канал закрыт при остановке
			if !ok {
				return nil
			}
			b.dispatch(ctx, d, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, d *Dispatcher, update tgbotapi.Update) {
	in, ok := Decode(update)
	if !ok {
		return
	}
	if d.Submit(ctx, in) {
		return
	}
	b.logger.WithFields(logrus.Fields{
		"user_id": in.Inbound.User.ID,
		"chat_id": in.ChatID,
	}).Warn("user queue is full, update dropped")
	if in.CallbackID != "" {
		if _, err := b.client.Request(tgbotapi.NewCallback(in.CallbackID, b.busy)); err != nil {
			b.logger.WithField("error", err.Error()).Debug("answer callback failed")
		}
	}
}

func (b *Bot) process(ctx context.Context, in Incoming) {
	r, err := b.handler.Handle(ctx, in.Inbound)
	if err != nil {
		b.logger.WithFields(logrus.Fields{
			"user_id": in.Inbound.User.ID,
			"error":   err.Error(),
		}).Error("handle update failed")
		r = nav.Render{Text: b.failure, Fresh: true}
	}
	b.sink.Deliver(in, r)
}

// WebhookPath is derived from the token so the token itself never shows up
// in access logs.
func WebhookPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "/telegram/" + hex.EncodeToString(sum[:])[:32]
}

// Router serves the webhook endpoint and a health check.
func (b *Bot) Router(ctx context.Context, d *Dispatcher) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST(WebhookPath(b.api.Token), func(c *gin.Context) {
		update, err := b.api.HandleUpdate(c.Request)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
			return
		}
		b.dispatch(ctx, d, *update)
		c.Status(http.StatusOK)
	})
	return r
}

func (b *Bot) serveWebhook(ctx context.Context, d *Dispatcher, opts Options) error {
	hook, err := tgbotapi.NewWebhook(opts.WebhookURL + WebhookPath(b.api.Token))
	if err != nil {
		return fmt.Errorf("build webhook: %w", err)
	}
	hook.DropPendingUpdates = true
	if _, err := b.client.Request(hook); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           b.Router(ctx, d),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		b.logger.WithField("addr", opts.Addr).Info("serving webhook")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Send delivers an administrator notification.
func (b *Bot) Send(ctx context.Context, chatID int64, msg notify.Message) error {
	var c tgbotapi.Chattable
	switch {
	case msg.Media == nil:
		c = tgbotapi.NewMessage(chatID, msg.Text)
	case msg.Media.Kind == notify.MediaPhoto:
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.Media.FileID))
		p.Caption = msg.Text
		c = p
	case msg.Media.Kind == notify.MediaVideo:
		v := tgbotapi.NewVideo(chatID, tgbotapi.FileID(msg.Media.FileID))
		v.Caption = msg.Text
		c = v
	default:
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(msg.Media.FileID))
		doc.Caption = msg.Text
		c = doc
	}
	if _, err := b.client.Send(c); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// Download opens an uploaded file. The caller closes the body.
func (b *Bot) Download(ctx context.Context, fileID string) (io.ReadCloser, int64, error) {
	link, err := b.client.GetFileDirectURL(fileID)
	if err != nil {
		return nil, 0, fmt.Errorf("file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	return resp.Body, resp.ContentLength, nil
}
