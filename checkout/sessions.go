package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/models"
)

var (
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrSessionSubmitted = errors.New("checkout session already submitted")
)

// Sessions persists wizards in the checkout_sessions table.
type Sessions struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

func NewSessions(db *gorm.DB, ttl time.Duration) *Sessions {
	return &Sessions{db: db, ttl: ttl, now: time.Now}
}

// Create stores a new wizard for guestID.
func (s *Sessions) Create(ctx context.Context, guestID string, w *Wizard) (*models.CheckoutSession, error) {
	state, err := json.Marshal(w.State())
	if err != nil {
		return nil, fmt.Errorf("encoding wizard state: %w", err)
	}
	session := &models.CheckoutSession{
		ID:        uuid.NewString(),
		GuestID:   guestID,
		State:     string(state),
		Status:    models.SessionStatusOpen,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// Load returns a guest's session and its wizard. Expired sessions are not found.
func (s *Sessions) Load(ctx context.Context, guestID, id string) (*models.CheckoutSession, *Wizard, error) {
	var session models.CheckoutSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND guest_id = ? AND expires_at > ?", id, guestID, s.now()).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var state State
	if err := json.Unmarshal([]byte(session.State), &state); err != nil {
		return nil, nil, fmt.Errorf("decoding wizard state: %w", err)
	}
	return &session, RestoreWizard(state), nil
}

// Save writes the wizard back and extends the session.
func (s *Sessions) Save(ctx context.Context, session *models.CheckoutSession, w *Wizard) error {
	state, err := json.Marshal(w.State())
	if err != nil {
		return fmt.Errorf("encoding wizard state: %w", err)
	}
	session.State = string(state)
	session.ExpiresAt = s.now().Add(s.ttl)
	return s.db.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{"state": session.State, "expires_at": session.ExpiresAt}).Error
}

// MarkSubmitted closes the session with the created order.
func (s *Sessions) MarkSubmitted(ctx context.Context, session *models.CheckoutSession, pedidoID int64) error {
	session.Status = models.SessionStatusSubmitted
	session.PedidoID = pedidoID
	return s.db.WithContext(ctx).Model(&models.CheckoutSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]interface{}{"status": session.Status, "pedido_id": pedidoID}).Error
}

// DeleteExpired removes open sessions past their expiry.
func (s *Sessions) DeleteExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", models.SessionStatusOpen, s.now()).
		Delete(&models.CheckoutSession{})
	return res.RowsAffected, res.Error
}
