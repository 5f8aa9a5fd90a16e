// Package storefront holds what both bots share: the administrator
// commands, the reviews album screen and contact normalisation.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/reviews"
)

const (
	// CollectorReviews is the collector /addreview switches the session to.
	CollectorReviews = "reviews"
	PendingLimit     = 30
	reviewsListLimit = 200
	// Telegram rejects longer messages.
	maxMessage = 4000
)

// Admin implements the administrator commands on top of the ledgers.
type Admin struct {
	orders  *orders.OrderManager
	catalog *catalog.Catalog
	reviews *reviews.Repository
	texts   func(lang string) AdminTexts
	logger  logrus.FieldLogger
}

func NewAdmin(om *orders.OrderManager, cat *catalog.Catalog, rev *reviews.Repository, texts func(lang string) AdminTexts, logger logrus.FieldLogger) *Admin {
	if texts == nil {
		texts = func(string) AdminTexts { return AdminTextsRU() }
	}
	return &Admin{orders: om, catalog: cat, reviews: rev, texts: texts, logger: logger}
}

// Register adds the commands and the review collector to g. All of them are
// administrator-only; the engine checks that on every call.
func (a *Admin) Register(g *nav.Graph) {
	g.AddCommand(&nav.Command{Name: "orders", AdminOnly: true, Run: a.pendingOrders})
	g.AddCommand(&nav.Command{Name: "setstatus", AdminOnly: true, Run: a.setStatus})
	g.AddCommand(&nav.Command{Name: "setprice", AdminOnly: true, Run: a.setPrice})
	g.AddCommand(&nav.Command{Name: "addreview", AdminOnly: true, Run: a.addReview})
	g.AddCommand(&nav.Command{Name: "reviewslist", AdminOnly: true, Run: a.listReviews})
	g.AddCommand(&nav.Command{Name: "delreview", AdminOnly: true, Run: a.deleteReview})
	g.AddCollector(&nav.Collector{ID: CollectorReviews, AdminOnly: true, Accept: a.collectReview})
}

func reply(text string) nav.Render {
	return nav.Render{Text: text, Fresh: true}
}

func (a *Admin) pendingOrders(ctx context.Context, r *nav.Request) (nav.Render, error) {
	t := a.texts(r.Lang)
	list, err := a.orders.PendingOrders(ctx, PendingLimit)
	if err != nil {
		return nav.Render{}, err
	}
	if len(list) == 0 {
		return reply(t.OrdersEmpty), nil
	}
	lines := make([]string, 0, len(list)+2)
	lines = append(lines, t.OrdersTitle, "")
	for i := range list {
		lines = append(lines, "• "+Summary(&list[i]))
	}
	return reply(clip(lines)), nil
}

func (a *Admin) setStatus(ctx context.Context, r *nav.Request) (nav.Render, error) {
	t := a.texts(r.Lang)
	args := strings.Fields(r.Args)
	if len(args) != 2 {
		return nav.Render{}, nav.Usage("%s", t.StatusUsage)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return nav.Render{}, nav.Usage("%s", t.StatusUsage)
	}
	status, err := orders.ParseStatus(strings.ToLower(args[1]))
	if err != nil {
		return nav.Render{}, nav.Usage("%s", t.StatusUsage)
	}

	order, err := a.orders.SetStatus(ctx, id, status)
	switch {
	case errors.Is(err, orders.ErrNotFound):
		return reply(fmt.Sprintf(t.OrderMissing, id)), nil
	case errors.Is(err, orders.ErrStatusFinal):
		return reply(fmt.Sprintf(t.StatusFinal, id, order.Status)), nil
	case err != nil:
		return nav.Render{}, err
	}
	a.logger.WithFields(logrus.Fields{"order_id": id, "status": status, "admin_id": r.User.ID}).Info("order status changed")
	return reply(fmt.Sprintf(t.StatusDone, id, status)), nil
}

func (a *Admin) setPrice(ctx context.Context, r *nav.Request) (nav.Render, error) {
	t := a.texts(r.Lang)
	args := strings.Fields(r.Args)
	if len(args) != 4 {
		return nav.Render{}, nav.Usage("%s", t.PriceUsage)
	}
	qty, err := strconv.Atoi(args[2])
	if err != nil || qty <= 0 {
		return nav.Render{}, nav.Usage("%s", t.PriceUsage)
	}
	amount, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil || amount < 0 {
		return nav.Render{}, nav.Usage("%s", t.PriceUsage)
	}

	key := catalog.Key{Platform: args[0], Service: args[1], Quantity: qty}
	if err := a.catalog.Set(ctx, key, amount); err != nil {
		if errors.Is(err, catalog.ErrInvalidPrice) {
			return nav.Render{}, nav.Usage("%s", t.PriceUsage)
		}
		return nav.Render{}, err
	}
	a.logger.WithFields(logrus.Fields{"price": key.String(), "amount": amount, "admin_id": r.User.ID}).Info("price changed")
	return reply(fmt.Sprintf(t.PriceSaved, strings.ToLower(key.String()), catalog.FormatAmount(amount))), nil
}

func (a *Admin) addReview(_ context.Context, r *nav.Request) (nav.Render, error) {
	r.Session.Collector = CollectorReviews
	return reply(a.texts(r.Lang).ReviewStart), nil
}

// collectReview stores every photo or video it gets until the administrator
// types DONE.
func (a *Admin) collectReview(ctx context.Context, r *nav.Request) (nav.Render, bool, error) {
	t := a.texts(r.Lang)
	msg := r.Text
	if msg.Attachment == nil {
		if strings.EqualFold(strings.TrimSpace(msg.Text), "done") {
			return reply(t.ReviewDone), true, nil
		}
		return reply(t.ReviewHint), false, nil
	}

	var mediaType reviews.MediaType
	switch msg.Attachment.Kind {
	case nav.AttachPhoto:
		mediaType = reviews.MediaPhoto
	case nav.AttachVideo:
		mediaType = reviews.MediaVideo
	default:
		return reply(t.ReviewHint), false, nil
	}
	rev, err := a.reviews.Add(ctx, mediaType, msg.Attachment.FileID, msg.Attachment.Caption)
	if err != nil {
		return nav.Render{}, false, err
	}
	a.logger.WithFields(logrus.Fields{"review_id": rev.ID, "media_type": mediaType, "admin_id": r.User.ID}).Info("review added")
	return reply(fmt.Sprintf(t.ReviewAdded, mediaType)), false, nil
}

func (a *Admin) listReviews(ctx context.Context, r *nav.Request) (nav.Render, error) {
	t := a.texts(r.Lang)
	list, err := a.reviews.List(ctx, reviewsListLimit)
	if err != nil {
		return nav.Render{}, err
	}
	if len(list) == 0 {
		return reply(t.ReviewsEmpty), nil
	}
	lines := make([]string, 0, len(list)+2)
	lines = append(lines, t.ReviewsTitle)
	for _, rev := range list {
		lines = append(lines, fmt.Sprintf("• %d [%s] %s (%s)", rev.ID, rev.MediaType, shorten(rev.Caption, 40), rev.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	lines = append(lines, "", t.ReviewsFoot)
	return reply(clip(lines)), nil
}

func (a *Admin) deleteReview(ctx context.Context, r *nav.Request) (nav.Render, error) {
	t := a.texts(r.Lang)
	args := strings.Fields(r.Args)
	if len(args) == 0 {
		return nav.Render{}, nav.Usage("%s", t.DeleteUsage)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return nav.Render{}, nav.Usage("%s", t.DeleteNaN)
	}
	ok, err := a.reviews.Delete(ctx, id)
	if err != nil {
		return nav.Render{}, err
	}
	if !ok {
		return reply(t.DeleteMiss), nil
	}
	a.logger.WithFields(logrus.Fields{"review_id": id, "admin_id": r.User.ID}).Info("review deleted")
	return reply(fmt.Sprintf(t.Deleted, id)), nil
}

// Summary is the one-line form of an order in administrator listings.
func Summary(o *orders.Order) string {
	parts := []string{fmt.Sprintf("#%d [%s]", o.ID, o.Kind), o.Username}
	for _, v := range []string{o.Model, o.Contact, o.Platform, o.Service} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if o.Quantity > 0 {
		parts = append(parts, strconv.Itoa(o.Quantity))
	}
	if o.Price > 0 {
		parts = append(parts, strings.TrimSpace(catalog.FormatAmount(o.Price)+" "+o.Currency))
	} else if o.Currency != "" {
		parts = append(parts, o.Currency)
	}
	if o.Note != "" {
		parts = append(parts, shorten(o.Note, 40))
	}
	parts = append(parts, o.CreatedAt.Format("02.01 15:04"))
	return strings.Join(parts, " | ")
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// clip joins lines and drops the tail that would not fit in one message.
func clip(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if b.Len()+len(l)+1 > maxMessage {
			b.WriteString("\n…")
			break
		}
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
	}
	return b.String()
}
