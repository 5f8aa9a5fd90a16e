// Package growthbot sells social media growth packages: the customer picks
// a platform, a service and a quantity, sends a link and a payment proof.
package growthbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/media"
	"telegram-storefront-bot/internal/nav"
	"telegram-storefront-bot/internal/notify"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/prefs"
	"telegram-storefront-bot/internal/reviews"
	"telegram-storefront-bot/internal/storefront"
)

const (
	ScreenLanguage   nav.ScreenID = "language"
	ScreenMain       nav.ScreenID = "main"
	ScreenPlatforms  nav.ScreenID = "platforms"
	ScreenServices   nav.ScreenID = "services"
	ScreenQuantities nav.ScreenID = "quantities"
	ScreenSummary    nav.ScreenID = "summary"
	ScreenReviews    nav.ScreenID = "reviews"

	FlowOrder nav.FlowID = "order"

	selLang     = "lang"
	selPlatform = "platform"
	selService  = "service"
	selQuantity = "quantity"
)

var linkPattern = regexp.MustCompile(`^(https?://\S+|@[A-Za-z0-9_.]{2,})$`)

var platformNames = map[string]string{
	"tiktok":    "TikTok",
	"instagram": "Instagram",
	"youtube":   "YouTube",
	"telegram":  "Telegram",
}

// ProofStore keeps a copy of payment proofs.
type ProofStore interface {
	Store(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// Downloader opens a file the customer uploaded.
type Downloader interface {
	Download(ctx context.Context, fileID string) (io.ReadCloser, int64, error)
}

type Options struct {
	Currency       string
	SupportContact string
}

type Deps struct {
	Orders  *orders.OrderManager
	Catalog *catalog.Catalog
	Reviews *reviews.Repository
	Prefs   *prefs.Store
	Logger  logrus.FieldLogger
	// Proofs and Files are optional; without them proofs stay in Telegram only.
	Proofs ProofStore
	Files  Downloader
}

type bot struct {
	deps Deps
	opts Options
}

// New builds the growth bot graph, administrator commands included.
func New(deps Deps, opts Options) *nav.Graph {
	if opts.Currency == "" {
		opts.Currency = "KZT"
	}
	b := &bot{deps: deps, opts: opts}

	g := nav.NewGraph(ScreenMain, nav.WithTexts(engineTexts), nav.WithStart(func(s *nav.Session) nav.ScreenID {
		if s.Lang == "" {
			return ScreenLanguage
		}
		return ScreenMain
	}))

	g.AddScreen(&nav.Screen{
		ID:     ScreenLanguage,
		Render: b.renderLanguage,
		Transitions: map[nav.ActionID]nav.Transition{
			"lang": {To: ScreenMain, Select: selLang, Valid: validLang, Do: b.saveLang},
		},
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenMain,
		Render: b.renderMain,
		Transitions: map[nav.ActionID]nav.Transition{
			"catalog":  {To: ScreenPlatforms, Reset: true},
			"language": {To: ScreenLanguage},
			"reviews":  storefront.OpenReviews(ScreenReviews),
		},
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenPlatforms,
		Render: b.renderPlatforms,
		Transitions: map[nav.ActionID]nav.Transition{
			"platform": {To: ScreenServices, Select: selPlatform, Valid: validKey},
		},
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenServices,
		Render: b.renderServices,
		Transitions: map[nav.ActionID]nav.Transition{
			"service": {To: ScreenQuantities, Select: selService, Valid: validKey},
			"back":    {To: ScreenPlatforms},
		},
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenQuantities,
		Render: b.renderQuantities,
		Transitions: map[nav.ActionID]nav.Transition{
			"qty":  {To: ScreenSummary, Select: selQuantity, Valid: validQuantity},
			"back": {To: ScreenServices},
		},
	})
	g.AddScreen(&nav.Screen{
		ID:     ScreenSummary,
		Render: b.renderSummary,
		Transitions: map[nav.ActionID]nav.Transition{
			"order": {Flow: FlowOrder},
			"back":  {To: ScreenQuantities},
		},
	})
	g.AddScreen(storefront.ReviewsScreen(ScreenReviews, deps.Reviews, reviewTexts))

	g.AddFlow(&nav.Flow{
		ID: FlowOrder,
		Prompts: []nav.Prompt{
			{Field: "link", Normalize: b.normalizeLink, Render: prompt(func(t texts) string { return t.AskLink })},
			{Field: "proof", Media: true, Render: prompt(func(t texts) string { return t.AskProof })},
		},
		Done:   ScreenMain,
		Commit: b.commitOrder,
	})

	storefront.NewAdmin(deps.Orders, deps.Catalog, deps.Reviews, adminTexts, deps.Logger).Register(g)
	return g
}

func prompt(text func(texts) string) nav.RenderFunc {
	return func(_ context.Context, v *nav.View) (nav.Render, error) {
		return nav.Render{Text: text(textsFor(v.Lang))}, nil
	}
}

func validKey(arg string) bool { return catalog.ValidKey(arg) }

func validQuantity(arg string) bool {
	n, err := strconv.Atoi(arg)
	return err == nil && n > 0
}

func (b *bot) saveLang(ctx context.Context, e *nav.Effect) error {
	e.Session.Lang = e.Arg
	if b.deps.Prefs == nil {
		return nil
	}
	return b.deps.Prefs.SetLang(ctx, e.User.ID, e.Arg)
}

func (b *bot) normalizeLink(text string) (string, error) {
	text = strings.TrimSpace(text)
	if !linkPattern.MatchString(text) {
		// Normalisers do not know the session language.
		return "", &nav.Reject{Message: textsFor(LangRU).NeedLink + "\n" + textsFor(LangEN).NeedLink}
	}
	return text, nil
}

func (b *bot) renderLanguage(_ context.Context, v *nav.View) (nav.Render, error) {
	return nav.Render{
		Text: textsFor(v.Lang).Language,
		Keyboard: [][]nav.Button{nav.Row(
			nav.Btn("🇷🇺 Русский", nav.Act("lang", LangRU)),
			nav.Btn("🇬🇧 English", nav.Act("lang", LangEN)),
		)},
	}, nil
}

func (b *bot) renderMain(_ context.Context, v *nav.View) (nav.Render, error) {
	t := textsFor(v.Lang)
	kb := [][]nav.Button{
		nav.Row(nav.Btn(t.Catalog, nav.Act("catalog"))),
		nav.Row(nav.Btn(t.Reviews, nav.Act("reviews")), nav.Btn(t.MyLang, nav.Act("language"))),
	}
	if handle := strings.TrimPrefix(b.opts.SupportContact, "@"); handle != "" {
		kb = append(kb, nav.Row(nav.Link(t.Support, "https://t.me/"+handle)))
	}
	return nav.Render{Text: t.Main, Keyboard: kb}, nil
}

func backRow(t texts, id nav.ActionID) []nav.Button {
	return nav.Row(nav.Btn(t.Back, nav.Act(id)))
}

func (b *bot) renderPlatforms(ctx context.Context, v *nav.View) (nav.Render, error) {
	t := textsFor(v.Lang)
	all, err := b.deps.Catalog.List(ctx)
	if err != nil {
		return nav.Render{}, err
	}
	var kb [][]nav.Button
	for _, p := range distinct(all, func(p catalog.Price) string { return p.Platform }) {
		kb = append(kb, nav.Row(nav.Btn(PlatformLabel(p), nav.Act("platform", p))))
	}
	if len(kb) == 0 {
		return nav.Render{}, nav.Gap("catalog is empty")
	}
	kb = append(kb, backRow(t, nav.ActionHome))
	return nav.Render{Text: t.Platforms, Keyboard: kb}, nil
}

func (b *bot) renderServices(ctx context.Context, v *nav.View) (nav.Render, error) {
	t := textsFor(v.Lang)
	platform := v.Selected(selPlatform)
	all, err := b.deps.Catalog.List(ctx)
	if err != nil {
		return nav.Render{}, err
	}
	var rows []catalog.Price
	for _, p := range all {
		if p.Platform == platform {
			rows = append(rows, p)
		}
	}
	services := distinct(rows, func(p catalog.Price) string { return p.Service })
	if len(services) == 0 {
		return nav.Render{}, nav.Gap("services of " + platform)
	}
	kb := make([][]nav.Button, 0, len(services)+1)
	for _, s := range services {
		kb = append(kb, nav.Row(nav.Btn(ServiceLabel(v.Lang, platform, s), nav.Act("service", s))))
	}
	kb = append(kb, backRow(t, "back"))
	return nav.Render{Text: fmt.Sprintf(t.Services, PlatformLabel(platform)), Keyboard: kb}, nil
}

func (b *bot) renderQuantities(ctx context.Context, v *nav.View) (nav.Render, error) {
	t := textsFor(v.Lang)
	platform, service := v.Selected(selPlatform), v.Selected(selService)
	rows, err := b.deps.Catalog.ListFor(ctx, platform, service)
	if err != nil {
		return nav.Render{}, err
	}
	if len(rows) == 0 {
		return nav.Render{}, nav.Gap("quantities of " + platform + "/" + service)
	}
	kb := make([][]nav.Button, 0, len(rows)+1)
	for _, p := range rows {
		label := fmt.Sprintf("%d · %s", p.Quantity, b.price(p.Amount))
		kb = append(kb, nav.Row(nav.Btn(label, nav.Act("qty", strconv.Itoa(p.Quantity)))))
	}
	kb = append(kb, backRow(t, "back"))
	text := fmt.Sprintf(t.Quantities, PlatformLabel(platform), ServiceLabel(v.Lang, platform, service))
	return nav.Render{Text: text, Keyboard: kb}, nil
}

// renderSummary needs a price for the exact package; a missing one is a
// data gap and the customer stays on the quantity list.
func (b *bot) renderSummary(ctx context.Context, v *nav.View) (nav.Render, error) {
	t := textsFor(v.Lang)
	key, err := selectedKey(v.Session.Selection)
	if err != nil {
		return nav.Render{}, err
	}
	amount, err := b.deps.Catalog.Lookup(ctx, key)
	if errors.Is(err, catalog.ErrPriceNotFound) {
		return nav.Render{}, nav.Gap(key.String())
	}
	if err != nil {
		return nav.Render{}, err
	}
	text := fmt.Sprintf(t.Summary, PlatformLabel(key.Platform), ServiceLabel(v.Lang, key.Platform, key.Service), key.Quantity, b.price(amount))
	return nav.Render{
		Text: text,
		Keyboard: [][]nav.Button{
			nav.Row(nav.Btn(t.Order, nav.Act("order"))),
			backRow(t, "back"),
		},
	}, nil
}

func selectedKey(sel map[string]string) (catalog.Key, error) {
	qty, err := strconv.Atoi(sel[selQuantity])
	if err != nil || sel[selPlatform] == "" || sel[selService] == "" {
		return catalog.Key{}, nav.Gap("package selection")
	}
	return catalog.Key{Platform: sel[selPlatform], Service: sel[selService], Quantity: qty}, nil
}

func (b *bot) price(amount int64) string {
	return catalog.FormatAmount(amount) + " " + b.opts.Currency
}

func (b *bot) commitOrder(ctx context.Context, c *nav.Completion) (nav.Receipt, error) {
	t := textsFor(c.Lang)
	key, err := selectedKey(c.Selection)
	if err != nil {
		return nav.Receipt{}, err
	}
	// The price is read again: an administrator may have changed it while
	// the customer was paying.
	amount, err := b.deps.Catalog.Lookup(ctx, key)
	if err != nil {
		return nav.Receipt{}, err
	}
	proof := c.Media("proof")
	if proof == nil {
		return nav.Receipt{}, errors.New("order flow finished without a proof")
	}

	order := &orders.Order{
		FlowID:      c.Instance,
		Kind:        orders.KindGrowth,
		UserID:      c.User.ID,
		Username:    orders.DisplayName(c.User.Username, c.User.FirstName, c.User.LastName),
		Currency:    b.opts.Currency,
		Platform:    key.Platform,
		Service:     key.Service,
		Quantity:    key.Quantity,
		Price:       amount,
		Link:        c.Value("link"),
		Note:        strings.TrimSpace(proof.Caption),
		ProofFileID: proof.FileID,
	}
	// Копия скриншота оплаты, если хранилище настроено
	order.ProofKey = b.archive(ctx, c.Instance, proof)

	created, err := b.deps.Orders.CreateOrder(ctx, order)
	if err != nil {
		return nav.Receipt{}, err
	}
	receipt := nav.Receipt{Text: fmt.Sprintf(t.Receipt, order.ID)}
	if created {
		b.deps.Logger.WithFields(logrus.Fields{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"package":  key.String(),
			"price":    amount,
		}).Info("order created")
		receipt.Notify = &notify.Message{
			Text:  b.alert(order),
			Media: &notify.Media{Kind: mediaKind(proof.Kind), FileID: proof.FileID},
		}
	}
	return receipt, nil
}

// archive copies the proof to object storage and returns its key, or ""
// when archiving is off or failed. The order never waits on it.
func (b *bot) archive(ctx context.Context, instance string, proof *nav.Attachment) string {
	if b.deps.Proofs == nil || b.deps.Files == nil {
		return ""
	}
	log := b.deps.Logger.WithFields(logrus.Fields{"flow_instance": instance, "file_id": proof.FileID})
	body, size, err := b.deps.Files.Download(ctx, proof.FileID)
	if err != nil {
		log.WithField("error", err.Error()).Warn("proof download failed")
		return ""
	}
	defer body.Close()

	key := media.ProofKey(instance, proof.FileID, proof.FileName)
	contentType := proof.MIME
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := b.deps.Proofs.Store(ctx, key, body, size, contentType); err != nil {
		log.WithField("error", err.Error()).Warn("proof archive failed")
		return ""
	}
	return key
}

// alert is always in Russian: the administrators read one language.
func (b *bot) alert(o *orders.Order) string {
	t := textsFor(LangRU)
	return fmt.Sprintf(t.Alert, o.ID, o.Username, o.UserID,
		PlatformLabel(o.Platform), ServiceLabel(LangRU, o.Platform, o.Service),
		o.Quantity, b.price(o.Price), o.Link)
}

func mediaKind(k nav.AttachmentKind) notify.MediaKind {
	switch k {
	case nav.AttachPhoto:
		return notify.MediaPhoto
	case nav.AttachVideo:
		return notify.MediaVideo
	}
	return notify.MediaDocument
}

func distinct(rows []catalog.Price, field func(catalog.Price) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rows {
		v := field(r)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// PlatformLabel is the display name of a platform key.
func PlatformLabel(platform string) string {
	if name, ok := platformNames[platform]; ok {
		return name
	}
	return platform
}

// ServiceLabel names a service key such as "tiktok_followers" in lang.
func ServiceLabel(lang, platform, service string) string {
	short := strings.TrimPrefix(service, platform+"_")
	names, ok := serviceNames[lang]
	if !ok {
		names = serviceNames[LangRU]
	}
	if name, ok := names[short]; ok {
		return name
	}
	return strings.ReplaceAll(short, "_", " ")
}

// DefaultPrices is the catalog seeded on first start.
func DefaultPrices() []catalog.Price {
	base := map[string]int64{"followers": 190, "likes": 90, "views": 50}
	factor := map[string]int64{"tiktok": 100, "instagram": 120, "youtube": 150, "telegram": 110}
	quantities := []int{100, 500, 1000, 5000}

	var out []catalog.Price
	for _, platform := range []string{"tiktok", "instagram", "youtube", "telegram"} {
		for _, service := range []string{"followers", "likes", "views"} {
			for _, q := range quantities {
				amount := base[service] * factor[platform] / 100 * int64(q) / 100
				out = append(out, catalog.Price{
					Platform: platform,
					Service:  platform + "_" + service,
					Quantity: q,
					Amount:   amount,
				})
			}
		}
	}
	return out
}
