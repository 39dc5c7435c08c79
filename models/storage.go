package models

import "time"

// StorageEntry is one key of a shopper's persisted client state (serialized cart,
// last order summary). Keys are namespaced by guest id.
type StorageEntry struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"index"`
}

// CheckoutSession persists a wizard between requests.
type CheckoutSession struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GuestID   string    `gorm:"index;not null" json:"guest_id"`
	State     string    `gorm:"type:text;not null" json:"-"` // JSON encoded wizard state
	Status    string    `gorm:"type:VARCHAR(20);default:'open'" json:"status"`
	PedidoID  int64     `json:"pedido_id,omitempty"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	SessionStatusOpen      = "open"
	SessionStatusSubmitted = "submitted"
)

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Product{},
		&Category{},
		&GuestUser{},
		&StorageEntry{},
		&CheckoutSession{},
		&Order{},
		&OrderItem{},
	}
}
