package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/database"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/reviews"
	"telegram-storefront-bot/internal/session"
)

const (
	scrMain    nav.ScreenID = "main"
	scrReviews nav.ScreenID = "reviews"
)

type harness struct {
	engine  *nav.Engine
	orders  *orders.OrderManager
	catalog *catalog.Catalog
	reviews *reviews.Repository
	admin   atomic.Bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := &harness{
		orders:  orders.NewOrderManager(db),
		catalog: catalog.New(db),
		reviews: reviews.NewRepository(db),
	}

	g := nav.NewGraph(scrMain)
	g.AddScreen(&nav.Screen{
		ID: scrMain,
		Render: func(context.Context, *nav.View) (nav.Render, error) {
			return nav.Render{Text: "main"}, nil
		},
		Transitions: map[nav.ActionID]nav.Transition{
			"reviews": OpenReviews(scrReviews),
		},
	})
	g.AddScreen(ReviewsScreen(scrReviews, h.reviews, func(string) ReviewTexts { return ReviewTextsEN() }))
	NewAdmin(h.orders, h.catalog, h.reviews, func(string) AdminTexts { return AdminTextsEN() }, logger).Register(g)

	e, err := nav.NewEngine(g, nav.Deps{
		Store:   session.NewMemoryStore(0),
		Locker:  session.NewKeyedMutex(),
		Logger:  logger,
		IsAdmin: func(int64) bool { return h.admin.Load() },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	h.engine = e
	return h
}

var admin = nav.User{ID: 1, Username: "boss"}

func (h *harness) send(t *testing.T, ev nav.Event) nav.Render {
	t.Helper()
	r, err := h.engine.Handle(context.Background(), nav.Inbound{User: admin, Event: ev})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	return r
}

func (h *harness) command(t *testing.T, name, args string) nav.Render {
	t.Helper()
	return h.send(t, nav.CommandMessage{Name: name, Args: args})
}

func photo(fileID, caption string) nav.TextMessage {
	return nav.TextMessage{Attachment: &nav.Attachment{Kind: nav.AttachPhoto, FileID: fileID, Caption: caption}}
}

func TestSetPrice(t *testing.T) {
	h := newHarness(t)
	texts := AdminTextsEN()
	ctx := context.Background()
	key := catalog.Key{Platform: "tiktok", Service: "tiktok_followers", Quantity: 100}

	t.Run("unauthorized", func(t *testing.T) {
		r := h.command(t, "setprice", "tiktok tiktok_followers 100 250")
		if r.Notice != nav.DefaultTexts("").Unauthorized {
			t.Fatalf("expected denial, got %+v", r)
		}
		if _, err := h.catalog.Lookup(ctx, key); !errors.Is(err, catalog.ErrPriceNotFound) {
			t.Fatalf("price written without rights: %v", err)
		}
	})

	h.admin.Store(true)

	t.Run("malformed", func(t *testing.T) {
		long := strings.Repeat("s", catalog.MaxKeyLen+1)
		for _, args := range []string{
			"",
			"tiktok tiktok_followers 100",
			"tiktok tiktok_followers x 250",
			"tiktok tiktok_followers 100 -5",
			"tiktok tiktok-stories 100 250",
			"tiktok " + long + " 100 250",
		} {
			r := h.command(t, "setprice", args)
			if r.Text != texts.PriceUsage {
				t.Fatalf("%q: expected usage, got %+v", args, r)
			}
		}
		// Keys that buttons could not carry are never stored.
		list, err := h.catalog.List(ctx)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("malformed prices stored: %+v", list)
		}
	})

	t.Run("set then lookup", func(t *testing.T) {
		r := h.command(t, "setprice", "tiktok tiktok_followers 100 250")
		if !strings.Contains(r.Text, "tiktok/tiktok_followers/100") || !strings.Contains(r.Text, "250") {
			t.Fatalf("unexpected reply %q", r.Text)
		}
		if got, err := h.catalog.Lookup(ctx, key); err != nil || got != 250 {
			t.Fatalf("Lookup = %d, %v; want 250", got, err)
		}
	})
}

func TestSetStatusAndPendingOrders(t *testing.T) {
	h := newHarness(t)
	h.admin.Store(true)
	texts := AdminTextsEN()
	ctx := context.Background()

	first := &orders.Order{FlowID: "f1", Kind: orders.KindRepair, UserID: 7, Username: "@client", Model: "iPhone 13", Currency: "KZT"}
	second := &orders.Order{FlowID: "f2", Kind: orders.KindConsultation, UserID: 8, Username: "@other", Note: "is it worth it?"}
	for _, o := range []*orders.Order{first, second} {
		if _, err := h.orders.CreateOrder(ctx, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	r := h.command(t, "orders", "")
	if !strings.Contains(r.Text, "iPhone 13") || !strings.Contains(r.Text, "is it worth it?") {
		t.Fatalf("pending list incomplete: %q", r.Text)
	}

	if r := h.command(t, "setstatus", fmt.Sprintf("%d done", first.ID)); r.Text != fmt.Sprintf(texts.StatusDone, first.ID, orders.StatusDone) {
		t.Fatalf("unexpected reply %q", r.Text)
	}
	if r := h.command(t, "setstatus", fmt.Sprintf("%d cancel", first.ID)); r.Text != fmt.Sprintf(texts.StatusFinal, first.ID, orders.StatusDone) {
		t.Fatalf("closed order changed: %q", r.Text)
	}
	if r := h.command(t, "setstatus", "999 done"); r.Text != fmt.Sprintf(texts.OrderMissing, 999) {
		t.Fatalf("unexpected reply %q", r.Text)
	}
	for _, args := range []string{"", "1", "abc done", fmt.Sprintf("%d later", second.ID)} {
		if r := h.command(t, "setstatus", args); r.Text != texts.StatusUsage {
			t.Fatalf("%q: expected usage, got %q", args, r.Text)
		}
	}

	r = h.command(t, "orders", "")
	if strings.Contains(r.Text, "iPhone 13") || !strings.Contains(r.Text, "is it worth it?") {
		t.Fatalf("closed order still pending: %q", r.Text)
	}
	got, _ := h.orders.GetOrder(ctx, second.ID)
	if got.Status != orders.StatusPending {
		t.Fatalf("malformed command changed order: %+v", got)
	}
}

func TestReviewLifecycle(t *testing.T) {
	h := newHarness(t)
	h.admin.Store(true)
	texts := AdminTextsEN()

	if r := h.command(t, "addreview", ""); r.Text != texts.ReviewStart {
		t.Fatalf("unexpected reply %q", r.Text)
	}
	if r := h.send(t, nav.TextMessage{Text: "hello"}); r.Text != texts.ReviewHint {
		t.Fatalf("text should get a hint: %q", r.Text)
	}
	h.send(t, photo("old", ""))
	if r := h.send(t, photo("new", "great")); r.Text != fmt.Sprintf(texts.ReviewAdded, reviews.MediaPhoto) {
		t.Fatalf("unexpected reply %q", r.Text)
	}
	if r := h.send(t, nav.TextMessage{Text: "done"}); r.Text != texts.ReviewDone {
		t.Fatalf("unexpected reply %q", r.Text)
	}

	r := h.send(t, nav.ButtonPress{Action: nav.Act("reviews")})
	if len(r.Album) != 2 || r.Album[0].FileID != "new" {
		t.Fatalf("newest review must come first: %+v", r.Album)
	}
	if !strings.Contains(r.Album[0].Caption, "great") {
		t.Fatalf("caption missing: %q", r.Album[0].Caption)
	}

	list := h.command(t, "reviewslist", "")
	var newest int64
	if _, err := fmt.Sscanf(strings.Split(list.Text, "\n")[1], "• %d", &newest); err != nil {
		t.Fatalf("cannot read id from %q: %v", list.Text, err)
	}
	if r := h.command(t, "delreview", fmt.Sprint(newest)); r.Text != fmt.Sprintf(texts.Deleted, newest) {
		t.Fatalf("unexpected reply %q", r.Text)
	}
	if r := h.command(t, "delreview", fmt.Sprint(newest)); r.Text != texts.DeleteMiss {
		t.Fatalf("unexpected reply %q", r.Text)
	}
	if r := h.command(t, "delreview", "twelve"); r.Text != texts.DeleteNaN {
		t.Fatalf("unexpected reply %q", r.Text)
	}

	h.send(t, nav.CommandMessage{Name: "start"})
	r = h.send(t, nav.ButtonPress{Action: nav.Act("reviews")})
	for _, item := range r.Album {
		if item.FileID == "new" {
			t.Fatal("deleted review still shown")
		}
	}
}

func TestReviewsPager(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := h.send(t, nav.ButtonPress{Action: nav.Act("reviews")})
	if r.Text != ReviewTextsEN().Empty || len(r.Album) != 0 {
		t.Fatalf("unexpected empty page %+v", r)
	}

	for i := 0; i < 7; i++ {
		if _, err := h.reviews.Add(ctx, reviews.MediaVideo, fmt.Sprintf("v%d", i), ""); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	h.send(t, nav.CommandMessage{Name: "start"})
	r = h.send(t, nav.ButtonPress{Action: nav.Act("reviews")})
	if len(r.Album) != reviews.PerPage || r.Text != fmt.Sprintf(ReviewTextsEN().Pager, 1, 2) {
		t.Fatalf("unexpected first page %+v", r)
	}
	if r.Album[0].Kind != nav.AttachVideo {
		t.Fatalf("videos must stay videos: %+v", r.Album[0])
	}
	if !r.HasAction(ActionReviewPage) {
		t.Fatal("no next page button")
	}

	r = h.send(t, nav.ButtonPress{Action: nav.Act(ActionReviewPage, "2")})
	if len(r.Album) != 1 || r.Album[0].FileID != "v0" {
		t.Fatalf("unexpected second page %+v", r.Album)
	}

	r = h.send(t, nav.ButtonPress{Action: nav.Act(ActionReviewPage, "0")})
	if r.Notice != nav.DefaultTexts("").Unknown {
		t.Fatalf("page 0 accepted: %+v", r)
	}
}

func TestContactNormalizer(t *testing.T) {
	norm := ContactNormalizer("kz", "empty")
	cases := []struct {
		in, want string
	}{
		{"+1234567890", "+1234567890"},
		{"  @client ", "@client"},
		{"+1 650-253-0000", "+16502530000"},
		{"call me maybe", "call me maybe"},
	}
	for _, tc := range cases {
		got, err := norm(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("normalize(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
	_, err := norm("   ")
	var rej *nav.Reject
	if !errors.As(err, &rej) || rej.Message != "empty" {
		t.Fatalf("empty contact accepted: %v", err)
	}
}
