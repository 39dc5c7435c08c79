package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusCreated   OrderStatus = "created"   // Accepted by the shop API
	OrderStatusConfirmed OrderStatus = "confirmed" // Payment approved or offline payment
	OrderStatusCancelled OrderStatus = "cancelled"

	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

var ErrOrderNotFound = errors.New("order not found")

// Order is the local record of an order created through the shop API. It backs the
// account order-history pages and the admin feed.
type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	GuestID        string          `gorm:"index;not null" json:"guest_id"`
	PedidoID       int64           `gorm:"uniqueIndex" json:"pedido_id"`
	NumeroPedido   string          `gorm:"index" json:"numero_pedido"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	ShippingMethod string          `json:"shipping_method"`
	ShippingCost   decimal.Decimal `gorm:"type:numeric(12,2)" json:"shipping_cost"`
	Total          decimal.Decimal `gorm:"type:numeric(12,2)" json:"total"`
	DeliveryDate   string          `json:"delivery_date"`
	TimeSlot       string          `json:"time_slot"`
	RecipientName  string          `json:"recipient_name"`
	Status         OrderStatus     `gorm:"type:VARCHAR(20);default:'created'" json:"status"`
	PaymentStatus  PaymentStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	PaymentMethod  string          `json:"payment_method"` // mercadopago, transfer, cash
	CreatedAt      time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"index" json:"order_id"`
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// MapPaymentStatus converts provider/admin status strings into a PaymentStatus.
func MapPaymentStatus(status string) (PaymentStatus, error) {
	switch strings.ToLower(status) {
	case "approved", "paid", "accredited":
		return PaymentStatusPaid, nil
	case "pending", "in_process", "authorized":
		return PaymentStatusPending, nil
	case "rejected", "cancelled", "failed":
		return PaymentStatusFailed, nil
	case "refunded", "charged_back":
		return PaymentStatusRefunded, nil
	default:
		return "", errors.New("invalid payment status")
	}
}

// OrderHistory persists and queries local order records.
type OrderHistory struct {
	DB *gorm.DB
}

func NewOrderHistory(db *gorm.DB) *OrderHistory {
	return &OrderHistory{DB: db}
}

// RecordOrder stores an order; re-recording the same pedido id is a no-op.
func (h *OrderHistory) RecordOrder(ctx context.Context, order *Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	return h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Order{}).Where("pedido_id = ?", order.PedidoID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		return tx.Create(order).Error
	})
}

// ListByGuest returns a guest's orders, newest first.
func (h *OrderHistory) ListByGuest(ctx context.Context, guestID string) ([]Order, error) {
	var orders []Order
	err := h.DB.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Preload("Items").
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// ListAll returns every order, newest first.
func (h *OrderHistory) ListAll(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := h.DB.WithContext(ctx).Preload("Items").Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// FindForGuest looks an order up by numero_pedido, scoped to its guest.
func (h *OrderHistory) FindForGuest(ctx context.Context, guestID, numero string) (*Order, error) {
	var order Order
	err := h.DB.WithContext(ctx).
		Preload("Items").
		Where("guest_id = ? AND numero_pedido = ?", guestID, numero).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePaymentStatus applies a payment notification to the order with pedidoID.
// An approved payment also confirms the order.
func (h *OrderHistory) UpdatePaymentStatus(ctx context.Context, pedidoID int64, status PaymentStatus) (*Order, error) {
	var order Order
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("pedido_id = ?", pedidoID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		updates := map[string]interface{}{"payment_status": status}
		if status == PaymentStatusPaid {
			updates["status"] = OrderStatusConfirmed
		}
		return tx.Model(&Order{}).Where("id = ?", order.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	order.PaymentStatus = status
	if status == PaymentStatusPaid {
		order.Status = OrderStatusConfirmed
	}
	return &order, nil
}
