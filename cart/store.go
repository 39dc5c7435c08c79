package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/junaidrashid-git/floreria-api/metrics"
)

// Mirror is the server-side copy of the cart kept by the shop API.
type Mirror interface {
	Snapshot(ctx context.Context, owner string) (*Cart, error)
	AddItem(ctx context.Context, owner string, productID uint, qty int) error
	UpdateItem(ctx context.Context, owner string, productID uint, qty int) error
	RemoveItem(ctx context.Context, owner string, productID uint) error
	ClearCart(ctx context.Context, owner string) error
}

// Listener is called after a cart was persisted.
type Listener func(owner string, c *Cart)

// LastOrder is the summary kept after a successful checkout.
type LastOrder struct {
	PedidoID      int64           `json:"pedido_id"`
	NumeroPedido  string          `json:"numero_pedido"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	DeliveryDate  string          `json:"delivery_date"`
	RedirectURL   string          `json:"redirect_url"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Store is the single authoritative cart store. The local storage wins over the
// server mirror; the mirror is replayed best effort after each mutation.
type Store struct {
	storage Storage
	mirror  Mirror
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*ownerLock

	listenersMu sync.RWMutex
	listeners   []Listener
}

// ownerLock serialises the mutations of one cart. refs counts holders and waiters;
// the entry is dropped from Store.locks only when it reaches zero.
type ownerLock struct {
	mu   sync.Mutex
	refs int
}

type Option func(*Store)

func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

func NewStore(storage Storage, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		logger:  logger,
		locks:   make(map[string]*ownerLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener for persisted cart changes.
func (s *Store) OnChange(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Store) lock(owner string) func() {
	s.mu.Lock()
	l, ok := s.locks[owner]
	if !ok {
		l = &ownerLock{}
		s.locks[owner] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, owner)
		}
		s.mu.Unlock()
	}
}

// Load returns the persisted cart. A missing entry and an unreadable entry both
// yield an empty cart.
func (s *Store) Load(ctx context.Context, owner string) (*Cart, error) {
	c, _, err := s.load(ctx, owner)
	return c, err
}

func (s *Store) load(ctx context.Context, owner string) (*Cart, bool, error) {
	raw, ok, err := s.storage.GetItem(ctx, CartKey(owner))
	if err != nil {
		return nil, false, fmt.Errorf("reading cart: %w", err)
	}
	if !ok {
		return New(), false, nil
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logger.Warn("discarding unreadable cart", zap.String("owner", owner), zap.Error(err))
		return New(), false, nil
	}
	state := c.SyncState
	c.recompute()
	if state == "" {
		state = SyncLocalOnly
	}
	c.SyncState = state
	return &c, true, nil
}

func (s *Store) persist(ctx context.Context, owner string, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if err := s.storage.SetItem(ctx, CartKey(owner), string(data)); err != nil {
		return fmt.Errorf("writing cart: %w", err)
	}
	return nil
}

func (s *Store) notify(owner string, c *Cart) {
	s.listenersMu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, l := range listeners {
		l(owner, c.Clone())
	}
}

// mutate runs change on the loaded cart, persists it, replays the change on the
// mirror and notifies listeners.
func (s *Store) mutate(ctx context.Context, owner, op string, change func(*Cart) error, replay func(context.Context) error) (*Cart, error) {
	unlock := s.lock(owner)
	defer unlock()

	c, _, err := s.load(ctx, owner)
	if err != nil {
		metrics.CartMutations.WithLabelValues(op, "error").Inc()
		return nil, err
	}
	if err := change(c); err != nil {
		metrics.CartMutations.WithLabelValues(op, "rejected").Inc()
		return nil, err
	}

	if s.mirror == nil {
		c.SyncState = SyncLocalOnly
	} else {
		c.SyncState = SyncSyncing
	}
	if err := s.persist(ctx, owner, c); err != nil {
		metrics.CartMutations.WithLabelValues(op, "error").Inc()
		return nil, err
	}

	if s.mirror != nil {
		if err := replay(ctx); err != nil {
			s.logger.Warn("cart mirror replay failed, cart stays local",
				zap.String("owner", owner), zap.String("op", op), zap.Error(err))
			c.SyncState = SyncLocalOnly
		} else {
			c.SyncState = SyncSynced
		}
		metrics.CartMirrorSync.WithLabelValues(string(c.SyncState)).Inc()
		if err := s.persist(ctx, owner, c); err != nil {
			return nil, err
		}
	}

	metrics.CartMutations.WithLabelValues(op, "ok").Inc()
	s.notify(owner, c)
	return c, nil
}

func (s *Store) Add(ctx context.Context, owner string, p Product, qty int) (*Cart, error) {
	return s.mutate(ctx, owner, "add",
		func(c *Cart) error { return c.add(p, qty) },
		func(ctx context.Context) error { return s.mirror.AddItem(ctx, owner, p.ID, qty) },
	)
}

func (s *Store) UpdateQuantity(ctx context.Context, owner string, productID uint, qty int) (*Cart, error) {
	replay := func(ctx context.Context) error { return s.mirror.UpdateItem(ctx, owner, productID, qty) }
	if qty < 1 {
		replay = func(ctx context.Context) error { return s.mirror.RemoveItem(ctx, owner, productID) }
	}
	return s.mutate(ctx, owner, "update",
		func(c *Cart) error { return c.setQuantity(productID, qty) },
		replay,
	)
}

func (s *Store) Remove(ctx context.Context, owner string, productID uint) (*Cart, error) {
	return s.mutate(ctx, owner, "remove",
		func(c *Cart) error { return c.remove(productID) },
		func(ctx context.Context) error { return s.mirror.RemoveItem(ctx, owner, productID) },
	)
}

func (s *Store) Clear(ctx context.Context, owner string) (*Cart, error) {
	return s.mutate(ctx, owner, "clear",
		func(c *Cart) error { c.clear(); return nil },
		func(ctx context.Context) error { return s.mirror.ClearCart(ctx, owner) },
	)
}

// Reconcile returns the local cart when one is stored. Otherwise the server snapshot
// is adopted and persisted; without a mirror (or when it fails) an empty cart is
// returned.
func (s *Store) Reconcile(ctx context.Context, owner string) (*Cart, error) {
	unlock := s.lock(owner)
	defer unlock()

	c, found, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if found || s.mirror == nil {
		return c, nil
	}

	snapshot, err := s.mirror.Snapshot(ctx, owner)
	if err != nil {
		s.logger.Warn("server cart unavailable, starting local", zap.String("owner", owner), zap.Error(err))
		return c, nil
	}
	adopted := FromItems(snapshot.Items)
	adopted.SyncState = SyncSynced
	if err := s.persist(ctx, owner, adopted); err != nil {
		return nil, err
	}
	metrics.CartMirrorSync.WithLabelValues(string(SyncSynced)).Inc()
	s.notify(owner, adopted)
	return adopted, nil
}

// Push overwrites the server cart with the local one. Without a mirror the local
// cart is returned unchanged.
func (s *Store) Push(ctx context.Context, owner string) (*Cart, error) {
	unlock := s.lock(owner)
	defer unlock()

	c, _, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if s.mirror == nil {
		return c, nil
	}

	c.SyncState = SyncSyncing
	if err := s.persist(ctx, owner, c); err != nil {
		return nil, err
	}
	err = s.mirror.ClearCart(ctx, owner)
	for _, it := range c.Items {
		if err != nil {
			break
		}
		err = s.mirror.AddItem(ctx, owner, it.ProductID, it.Quantity)
	}
	if err != nil {
		s.logger.Warn("cart push failed, cart stays local", zap.String("owner", owner), zap.Error(err))
		c.SyncState = SyncLocalOnly
	} else {
		c.SyncState = SyncSynced
	}
	metrics.CartMirrorSync.WithLabelValues(string(c.SyncState)).Inc()
	if err := s.persist(ctx, owner, c); err != nil {
		return nil, err
	}
	s.notify(owner, c)
	return c, nil
}

func (s *Store) SaveLastOrder(ctx context.Context, owner string, order LastOrder) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encoding last order: %w", err)
	}
	return s.storage.SetItem(ctx, LastOrderKey(owner), string(data))
}

func (s *Store) LastOrder(ctx context.Context, owner string) (*LastOrder, error) {
	raw, ok, err := s.storage.GetItem(ctx, LastOrderKey(owner))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoLastOrder
	}
	var order LastOrder
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, ErrNoLastOrder
	}
	return &order, nil
}

// Forget drops every stored key of owner.
func (s *Store) Forget(ctx context.Context, owner string) error {
	unlock := s.lock(owner)
	defer unlock()
	if err := s.storage.RemoveItem(ctx, CartKey(owner)); err != nil {
		return err
	}
	return s.storage.RemoveItem(ctx, LastOrderKey(owner))
}
