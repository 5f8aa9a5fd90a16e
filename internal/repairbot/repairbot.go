// Package repairbot is the phone repair storefront: a price list per
// currency, repair orders, free consultations and customer reviews.
package repairbot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/notify"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/reviews"
	"telegram-storefront-bot/internal/storefront"
)

const (
	ScreenMain     nav.ScreenID = "main"
	ScreenCurrency nav.ScreenID = "currency"
	ScreenPrices   nav.ScreenID = "prices"
	ScreenReviews  nav.ScreenID = "reviews"
	ScreenTrust    nav.ScreenID = "trust"
	ScreenContacts nav.ScreenID = "contacts"

	FlowOrder nav.FlowID = "order"
	FlowFree  nav.FlowID = "free"

	selCurrency     = "currency"
	defaultCurrency = "KZT"
	modelPrefix     = "iphone_"
)

var currencies = []string{"KZT", "RUB"}

type Options struct {
	TrustContact   string
	SupportContact string
	WorkHours      string
	PhoneRegion    string
}

type Deps struct {
	Orders  *orders.OrderManager
	Catalog *catalog.Catalog
	Reviews *reviews.Repository
	Logger  logrus.FieldLogger
}

type bot struct {
	deps Deps
	opts Options
}

// New builds the navigation graph of the repair bot, administrator
// commands included.
func New(deps Deps, opts Options) *nav.Graph {
	if opts.TrustContact == "" {
		opts.TrustContact = "@icloud_klk"
	}
	if opts.SupportContact == "" {
		opts.SupportContact = opts.TrustContact
	}
	if opts.WorkHours == "" {
		opts.WorkHours = "10:00–22:00"
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "KZ"
	}
	b := &bot{deps: deps, opts: opts}

	g := nav.NewGraph(ScreenMain, nav.WithTexts(engineTexts))
	g.AddScreen(&nav.Screen{
		ID:     ScreenMain,
		Render: static(textMain, mainKeyboard()),
		Transitions: map[nav.ActionID]nav.Transition{
			"prices":   {To: ScreenCurrency},
			"order":    {Flow: FlowOrder, Reset: true},
			"free":     {Flow: FlowFree, Reset: true},
			"reviews":  storefront.OpenReviews(ScreenReviews),
			"trust":    {To: ScreenTrust},
			"contacts": {To: ScreenContacts},
		},
	})
	g.AddScreen(&nav.Screen{
		ID: ScreenCurrency,
		Render: static(textCurrency, [][]nav.Button{
			nav.Row(nav.Btn("KZT 🇰🇿", nav.Act("cur", "KZT")), nav.Btn("RUB 🇷🇺", nav.Act("cur", "RUB"))),
			backRow(),
		}),
		Transitions: map[nav.ActionID]nav.Transition{
			"cur": {To: ScreenPrices, Select: selCurrency, Valid: validCurrency},
		},
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenPrices,
		Render: b.renderPrices,
		Transitions: map[nav.ActionID]nav.Transition{
			"order": {Flow: FlowOrder},
			"free":  {Flow: FlowFree},
			"back":  {To: ScreenCurrency},
		},
	})
	g.AddScreen(storefront.ReviewsScreen(ScreenReviews, deps.Reviews, func(string) storefront.ReviewTexts {
		return storefront.ReviewTextsRU()
	}))
	g.AddScreen(&nav.Screen{
		ID:     ScreenTrust,
		Render: static(fmt.Sprintf(textTrust, opts.TrustContact), [][]nav.Button{backRow()}),
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenContacts,
		Render: static(fmt.Sprintf(textContacts, opts.SupportContact, opts.WorkHours), [][]nav.Button{backRow()}),
	})

	g.AddFlow(&nav.Flow{
		ID: FlowOrder,
		Prompts: []nav.Prompt{
			{Field: "model", Normalize: required, Render: static(askModel, nil)},
			{Field: "contact", Normalize: storefront.ContactNormalizer(opts.PhoneRegion, needContact), Render: static(askContact, nil)},
			{Field: "note", Normalize: required, Render: static(askNote, nil)},
		},
		Done:   ScreenMain,
		Commit: b.commitOrder,
	})
	g.AddFlow(&nav.Flow{
		ID:      FlowFree,
		Prompts: []nav.Prompt{{Field: "question", Normalize: required, Render: static(askQuestion, nil)}},
		Done:    ScreenMain,
		Commit:  b.commitFree,
	})

	storefront.NewAdmin(deps.Orders, deps.Catalog, deps.Reviews, nil, deps.Logger).Register(g)
	return g
}

func static(text string, keyboard [][]nav.Button) nav.RenderFunc {
	return func(context.Context, *nav.View) (nav.Render, error) {
		return nav.Render{Text: text, Keyboard: keyboard}, nil
	}
}

func backRow() []nav.Button {
	return nav.Row(nav.Btn(btnBack, nav.Act(nav.ActionHome)))
}

func mainKeyboard() [][]nav.Button {
	return [][]nav.Button{
		nav.Row(nav.Btn(btnPrices, nav.Act("prices"))),
		nav.Row(nav.Btn(btnOrder, nav.Act("order"))),
		nav.Row(nav.Btn(btnFree, nav.Act("free"))),
		nav.Row(nav.Btn(btnReviews, nav.Act("reviews"))),
		nav.Row(nav.Btn(btnTrust, nav.Act("trust"))),
		nav.Row(nav.Btn(btnContacts, nav.Act("contacts"))),
	}
}

func validCurrency(arg string) bool {
	for _, c := range currencies {
		if arg == c {
			return true
		}
	}
	return false
}

func required(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &nav.Reject{Message: needText}
	}
	return text, nil
}

func currencyOf(selection map[string]string) string {
	if c := selection[selCurrency]; c != "" {
		return c
	}
	return defaultCurrency
}

// renderPrices lists every model priced in the selected currency. A currency
// without any rows is a data gap.
func (b *bot) renderPrices(ctx context.Context, v *nav.View) (nav.Render, error) {
	cur := currencyOf(v.Session.Selection)
	all, err := b.deps.Catalog.List(ctx)
	if err != nil {
		return nav.Render{}, err
	}
	var rows []catalog.Price
	for _, p := range all {
		if strings.EqualFold(p.Platform, cur) && strings.HasPrefix(p.Service, modelPrefix) {
			rows = append(rows, p)
		}
	}
	if len(rows) == 0 {
		return nav.Render{}, nav.Gap("prices in " + cur)
	}
	sort.SliceStable(rows, func(i, j int) bool { return modelLess(rows[i].Service, rows[j].Service) })

	lines := make([]string, 0, len(rows)+4)
	lines = append(lines, textPriceTitle, "")
	for _, p := range rows {
		lines = append(lines, fmt.Sprintf("• %s — %s %s", modelLabel(p.Service), catalog.FormatThousands(p.Amount), cur))
	}
	lines = append(lines, "", textPriceNote)

	return nav.Render{
		Text: strings.Join(lines, "\n"),
		Keyboard: [][]nav.Button{
			nav.Row(nav.Btn(btnOrder, nav.Act("order"))),
			nav.Row(nav.Btn(btnFreeShort, nav.Act("free"))),
			nav.Row(nav.Btn(btnBack, nav.Act("back"))),
		},
	}, nil
}

// modelLabel turns a catalog service key into the price list name:
// "iphone_13" -> "АЙФОН 13".
func modelLabel(service string) string {
	return "АЙФОН " + strings.ReplaceAll(strings.TrimPrefix(service, modelPrefix), "_", " ")
}

// modelLess orders "iphone_9" before "iphone_11".
func modelLess(a, b string) bool {
	a, b = strings.TrimPrefix(a, modelPrefix), strings.TrimPrefix(b, modelPrefix)
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func (b *bot) commitOrder(ctx context.Context, c *nav.Completion) (nav.Receipt, error) {
	order := &orders.Order{
		FlowID:   c.Instance,
		Kind:     orders.KindRepair,
		UserID:   c.User.ID,
		Username: orders.DisplayName(c.User.Username, c.User.FirstName, c.User.LastName),
		Model:    c.Value("model"),
		Contact:  c.Value("contact"),
		Note:     c.Value("note"),
		Currency: currencyOf(c.Selection),
	}
	// Создаем заказ
	created, err := b.deps.Orders.CreateOrder(ctx, order)
	if err != nil {
		return nav.Receipt{}, err
	}
	// Подтверждаем пользователю
	receipt := nav.Receipt{
		Text: fmt.Sprintf(receiptOrder, order.ID, order.Model, order.Contact, order.Currency, order.Note),
	}
	// Уведомляем админов только о новом заказе
	if created {
		b.deps.Logger.WithFields(logrus.Fields{"order_id": order.ID, "user_id": order.UserID, "kind": order.Kind}).Info("order created")
		receipt.Notify = &notify.Message{Text: OrderAlert(order)}
	}
	return receipt, nil
}

func (b *bot) commitFree(ctx context.Context, c *nav.Completion) (nav.Receipt, error) {
	order := &orders.Order{
		FlowID:   c.Instance,
		Kind:     orders.KindConsultation,
		UserID:   c.User.ID,
		Username: orders.DisplayName(c.User.Username, c.User.FirstName, c.User.LastName),
		Note:     c.Value("question"),
		Currency: currencyOf(c.Selection),
	}
	created, err := b.deps.Orders.CreateOrder(ctx, order)
	if err != nil {
		return nav.Receipt{}, err
	}
	receipt := nav.Receipt{Text: receiptFree}
	if created {
		b.deps.Logger.WithFields(logrus.Fields{"order_id": order.ID, "user_id": order.UserID, "kind": order.Kind}).Info("consultation requested")
		receipt.Notify = &notify.Message{Text: OrderAlert(order)}
	}
	return receipt, nil
}

// OrderAlert is the administrator message for a new repair order or
// consultation request.
func OrderAlert(o *orders.Order) string {
	if o.Kind == orders.KindConsultation {
		return fmt.Sprintf(alertFree, o.ID, o.Username, o.UserID, o.Currency, o.Note)
	}
	return fmt.Sprintf(alertOrder, o.ID, o.Username, o.UserID, o.Model, o.Contact, o.Currency, o.Note)
}

// DefaultPrices is the price list seeded on first start. Administrators
// change it with /setprice KZT iphone_13 1 32000.
func DefaultPrices() []catalog.Price {
	kzt := []int64{20000, 25000, 32000, 40000, 45000, 50000, 60000}
	rub := []int64{3000, 3700, 4700, 6000, 6700, 7400, 8900}
	out := make([]catalog.Price, 0, len(kzt)+len(rub))
	for i := range kzt {
		service := fmt.Sprintf("%s%d", modelPrefix, 11+i)
		out = append(out,
			catalog.Price{Platform: "kzt", Service: service, Quantity: 1, Amount: kzt[i]},
			catalog.Price{Platform: "rub", Service: service, Quantity: 1, Amount: rub[i]},
		)
	}
	return out
}
