package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusCancel  Status = "cancel"
)

type Kind string

const (
	KindRepair       Kind = "repair"
	KindConsultation Kind = "consultation"
	KindGrowth       Kind = "growth"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrStatusFinal   = errors.New("order status already final")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Order is one ledger row. Everything except Status is fixed at insert time.
// FlowID carries the flow instance that produced the order and is unique, so
// replaying the same completion cannot insert a second row.
type Order struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FlowID      string    `gorm:"size:64;uniqueIndex" json:"flow_id"`
	Kind        Kind      `gorm:"size:32;index" json:"kind"`
	UserID      int64     `gorm:"index" json:"user_id"`
	Username    string    `gorm:"size:128" json:"username"`
	Model       string    `json:"model,omitempty"`
	Contact     string    `json:"contact,omitempty"`
	Note        string    `json:"note,omitempty"`
	Currency    string    `gorm:"size:8" json:"currency,omitempty"`
	Platform    string    `gorm:"size:64" json:"platform,omitempty"`
	Service     string    `gorm:"size:64" json:"service,omitempty"`
	Quantity    int       `json:"quantity,omitempty"`
	Price       int64     `json:"price,omitempty"`
	Link        string    `json:"link,omitempty"`
	ProofFileID string    `json:"proof_file_id,omitempty"`
	ProofKey    string    `json:"proof_key,omitempty"`
	Status      Status    `gorm:"size:16;index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OrderManager struct {
	db *gorm.DB
}

func NewOrderManager(db *gorm.DB) *OrderManager {
	return &OrderManager{db: db}
}

// CreateOrder appends order to the ledger with status pending. When an order
// with the same FlowID already exists nothing is written, order is filled
// from the stored row and created is false.
func (om *OrderManager) CreateOrder(ctx context.Context, order *Order) (created bool, err error) {
	if order.FlowID == "" {
		return false, errors.New("order flow id is required")
	}
	order.Status = StatusPending
	res := om.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "flow_id"}}, DoNothing: true}).
		Create(order)
	if res.Error != nil {
		return false, fmt.Errorf("insert order: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if err := om.db.WithContext(ctx).Where("flow_id = ?", order.FlowID).First(order).Error; err != nil {
		return false, fmt.Errorf("select order by flow: %w", err)
	}
	return false, nil
}

func (om *OrderManager) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order
	err := om.db.WithContext(ctx).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	return &order, nil
}

// GetOrders returns the newest orders first.
func (om *OrderManager) GetOrders(ctx context.Context, limit int) ([]Order, error) {
	return om.list(ctx, "", limit)
}

func (om *OrderManager) PendingOrders(ctx context.Context, limit int) ([]Order, error) {
	return om.list(ctx, StatusPending, limit)
}

func (om *OrderManager) list(ctx context.Context, status Status, limit int) ([]Order, error) {
	q := om.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Order
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}

// SetStatus moves a pending order to done or cancel. Closed orders never
// change again.
func (om *OrderManager) SetStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	if status != StatusDone && status != StatusCancel {
		return nil, ErrInvalidStatus
	}
	res := om.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("update order status: %w", res.Error)
	}
	order, err := om.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return order, ErrStatusFinal
	}
	return order, nil
}

// ParseStatus accepts the administrator spellings of the final statuses.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDone, "closed", "ok":
		return StatusDone, nil
	case StatusCancel, "cancelled", "canceled":
		return StatusCancel, nil
	}
	return "", ErrInvalidStatus
}

// DisplayName renders a customer the way admin messages show it.
func DisplayName(username, firstName, lastName string) string {
	if username != "" {
		return "@" + username
	}
	name := firstName
	if lastName != "" {
		name += " " + lastName
	}
	if name == "" {
		return "(no username)"
	}
	return name
}
