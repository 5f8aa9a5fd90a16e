// Package catalog stores the price table: (platform, service, quantity) -> price.
// Defaults are seeded at startup; administrator edits override them and are
// never deleted.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPriceNotFound = errors.New("price not found")
	ErrInvalidPrice  = errors.New("invalid price")
)

// MaxKeyLen bounds platform and service keys. Keys travel in callback data
// such as "service:<key>", which Telegram caps at 64 bytes.
const MaxKeyLen = 48

var keyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidKey reports whether s is a usable platform or service key: lower case
// latin letters, digits and underscores, at most MaxKeyLen bytes.
func ValidKey(s string) bool {
	return len(s) <= MaxKeyLen && keyPattern.MatchString(s)
}

type Key struct {
	Platform string
	Service  string
	Quantity int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Platform, k.Service, k.Quantity)
}

// Price is a catalog row. Amount is in the app's display unit (whole tenge or
// roubles for the repair bot, whole units for the growth bot).
type Price struct {
	Platform  string    `gorm:"primaryKey;size:64" json:"platform"`
	Service   string    `gorm:"primaryKey;size:64" json:"service"`
	Quantity  int       `gorm:"primaryKey" json:"quantity"`
	Amount    int64     `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p Price) Key() Key {
	return Key{Platform: p.Platform, Service: p.Service, Quantity: p.Quantity}
}

type Catalog struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func normalize(k Key) Key {
	k.Platform = strings.ToLower(strings.TrimSpace(k.Platform))
	k.Service = strings.ToLower(strings.TrimSpace(k.Service))
	return k
}

// Lookup returns the current amount for k or ErrPriceNotFound.
func (c *Catalog) Lookup(ctx context.Context, k Key) (int64, error) {
	k = normalize(k)
	var p Price
	err := c.db.WithContext(ctx).
		Where("platform = ? AND service = ? AND quantity = ?", k.Platform, k.Service, k.Quantity).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrPriceNotFound, k)
	}
	if err != nil {
		return 0, fmt.Errorf("select price: %w", err)
	}
	return p.Amount, nil
}

// Set inserts or overwrites the amount for k.
func (c *Catalog) Set(ctx context.Context, k Key, amount int64) error {
	k = normalize(k)
	if !ValidKey(k.Platform) || !ValidKey(k.Service) || k.Quantity <= 0 || amount < 0 {
		return ErrInvalidPrice
	}
	p := Price{Platform: k.Platform, Service: k.Service, Quantity: k.Quantity, Amount: amount, UpdatedAt: time.Now().UTC()}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "service"}, {Name: "quantity"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return fmt.Errorf("upsert price %s: %w", k, err)
	}
	return nil
}

// Seed inserts the defaults that are not in the table yet. Existing rows,
// including administrator overrides, are left alone.
func (c *Catalog) Seed(ctx context.Context, defaults []Price) error {
	if len(defaults) == 0 {
		return nil
	}
	rows := make([]Price, 0, len(defaults))
	now := time.Now().UTC()
	for _, d := range defaults {
		k := normalize(d.Key())
		rows = append(rows, Price{Platform: k.Platform, Service: k.Service, Quantity: k.Quantity, Amount: d.Amount, UpdatedAt: now})
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("seed prices: %w", err)
	}
	return nil
}

// List returns every row ordered by platform, service and quantity.
func (c *Catalog) List(ctx context.Context) ([]Price, error) {
	var out []Price
	err := c.db.WithContext(ctx).Order("platform, service, quantity").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return out, nil
}

// ListFor returns the quantities priced for one platform/service pair.
func (c *Catalog) ListFor(ctx context.Context, platform, service string) ([]Price, error) {
	k := normalize(Key{Platform: platform, Service: service})
	var out []Price
	err := c.db.WithContext(ctx).
		Where("platform = ? AND service = ?", k.Platform, k.Service).
		Order("quantity").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list prices for %s/%s: %w", k.Platform, k.Service, err)
	}
	return out, nil
}
