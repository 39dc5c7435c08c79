package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/junaidrashid-git/floreria-api/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func rosas() Product {
	return Product{ID: 1, Name: "Ramo de rosas", Price: decimal.NewFromInt(100), Stock: 10}
}

func tulipanes() Product {
	return Product{ID: 2, Name: "Tulipanes", Price: decimal.RequireFromString("45.50"), Stock: 3}
}

func newTestStore(opts ...Option) *Store {
	return NewStore(NewMemoryStorage(), zap.NewNop(), opts...)
}

func assertTotals(t *testing.T, c *Cart) {
	t.Helper()
	total := decimal.Zero
	count := 0
	for _, it := range c.Items {
		assert.True(t, it.LineTotal.Equal(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))))
		assert.GreaterOrEqual(t, it.Quantity, 1)
		total = total.Add(it.LineTotal)
		count += it.Quantity
	}
	assert.True(t, c.TotalPrice.Equal(total), "total_price %s != %s", c.TotalPrice, total)
	assert.Equal(t, count, c.TotalItems)
	assert.Equal(t, len(c.Items) == 0, c.IsEmpty)
}

func TestStore_AddThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Add(ctx, "g1", rosas(), 1)
	require.NoError(t, err)
	c, err := s.UpdateQuantity(ctx, "g1", 1, 3)
	require.NoError(t, err)

	assert.True(t, c.TotalPrice.Equal(decimal.NewFromInt(300)))
	assert.Equal(t, 3, c.TotalItems)
	assert.False(t, c.IsEmpty)
	assert.Equal(t, SyncLocalOnly, c.SyncState)
}

func TestStore_AddMergesLines(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Add(ctx, "g1", rosas(), 2)
	require.NoError(t, err)
	c, err := s.Add(ctx, "g1", rosas(), 3)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assertTotals(t, c)
}

func TestStore_AddRejections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Add(ctx, "g1", rosas(), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.Add(ctx, "g1", tulipanes(), 2)
	require.NoError(t, err)
	_, err = s.Add(ctx, "g1", tulipanes(), 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	c, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	item, ok := c.Item(2)
	require.True(t, ok)
	assert.Equal(t, 2, item.Quantity)
}

func TestStore_UpdateQuantity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Add(ctx, "g1", tulipanes(), 1)
	require.NoError(t, err)

	_, err = s.UpdateQuantity(ctx, "g1", 2, 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = s.UpdateQuantity(ctx, "g1", 99, 1)
	assert.ErrorIs(t, err, ErrItemNotInCart)

	c, err := s.UpdateQuantity(ctx, "g1", 2, 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty)
	assertTotals(t, c)
}

func TestStore_TotalsInvariant(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	steps := []func() (*Cart, error){
		func() (*Cart, error) { return s.Add(ctx, "g1", rosas(), 2) },
		func() (*Cart, error) { return s.Add(ctx, "g1", tulipanes(), 1) },
		func() (*Cart, error) { return s.UpdateQuantity(ctx, "g1", 2, 3) },
		func() (*Cart, error) { return s.Add(ctx, "g1", rosas(), 1) },
		func() (*Cart, error) { return s.Remove(ctx, "g1", 1) },
		func() (*Cart, error) { return s.UpdateQuantity(ctx, "g1", 2, 1) },
		func() (*Cart, error) { return s.Clear(ctx, "g1") },
	}
	for i, step := range steps {
		c, err := step()
		require.NoError(t, err, "step %d", i)
		assertTotals(t, c)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Add(ctx, "g1", rosas(), 2)
	require.NoError(t, err)
	want, err := s.Add(ctx, "g1", tulipanes(), 3)
	require.NoError(t, err)

	got, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Errorf("reloaded cart mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadCorruptOrMissing(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	s := NewStore(storage, zap.NewNop())

	c, err := s.Load(ctx, "nobody")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty)

	require.NoError(t, storage.SetItem(ctx, CartKey("g1"), "{not json"))
	c, err = s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty)
	assert.Empty(t, c.Items)
}

type fakeMirror struct {
	mu       sync.Mutex
	fail     bool
	calls    []string
	snapshot *Cart
}

func (f *fakeMirror) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if f.fail {
		return errors.New("mirror down")
	}
	return nil
}

func (f *fakeMirror) Snapshot(context.Context, string) (*Cart, error) {
	if err := f.record("snapshot"); err != nil {
		return nil, err
	}
	return f.snapshot, nil
}
func (f *fakeMirror) AddItem(context.Context, string, uint, int) error    { return f.record("add") }
func (f *fakeMirror) UpdateItem(context.Context, string, uint, int) error { return f.record("update") }
func (f *fakeMirror) RemoveItem(context.Context, string, uint) error      { return f.record("remove") }
func (f *fakeMirror) ClearCart(context.Context, string) error             { return f.record("clear") }

func TestStore_MirrorSyncStates(t *testing.T) {
	ctx := context.Background()
	mirror := &fakeMirror{}
	s := newTestStore(WithMirror(mirror))

	c, err := s.Add(ctx, "g1", rosas(), 1)
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, c.SyncState)

	mirror.fail = true
	c, err = s.UpdateQuantity(ctx, "g1", 1, 0)
	require.NoError(t, err, "mirror failures are never surfaced")
	assert.Equal(t, SyncLocalOnly, c.SyncState)

	reloaded, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SyncLocalOnly, reloaded.SyncState)
	assert.Equal(t, []string{"add", "remove"}, mirror.calls)
}

func TestStore_ReconcilePrefersLocal(t *testing.T) {
	ctx := context.Background()
	mirror := &fakeMirror{snapshot: FromItems([]Item{{ProductID: 7, Name: "Orquídea", UnitPrice: decimal.NewFromInt(80), Quantity: 1}})}
	s := newTestStore(WithMirror(mirror))

	adopted, err := s.Reconcile(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, adopted.Items, 1)
	assert.Equal(t, uint(7), adopted.Items[0].ProductID)
	assert.Equal(t, SyncSynced, adopted.SyncState)

	_, err = s.Add(ctx, "g1", rosas(), 1)
	require.NoError(t, err)
	mirror.snapshot = New()

	local, err := s.Reconcile(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, local.Items, 2)
	assertTotals(t, local)
}

func TestStore_Push(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Add(ctx, "g1", rosas(), 2)
	require.NoError(t, err)

	c, err := s.Push(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SyncLocalOnly, c.SyncState, "no mirror configured")

	mirror := &fakeMirror{}
	s.mirror = mirror
	_, err = s.Add(ctx, "g1", tulipanes(), 1)
	require.NoError(t, err)
	mirror.calls = nil

	c, err = s.Push(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SyncSynced, c.SyncState)
	assert.Equal(t, []string{"clear", "add", "add"}, mirror.calls)

	mirror.fail = true
	c, err = s.Push(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, SyncLocalOnly, c.SyncState)
}

func TestStore_ReconcileWithMirrorDown(t *testing.T) {
	mirror := &fakeMirror{fail: true}
	s := newTestStore(WithMirror(mirror))

	c, err := s.Reconcile(context.Background(), "g1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty)
	assert.Equal(t, SyncLocalOnly, c.SyncState)
}

func TestStore_Listeners(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	var seen []int
	s.OnChange(func(owner string, c *Cart) {
		assert.Equal(t, "g1", owner)
		seen = append(seen, c.TotalItems)
	})

	_, err := s.Add(ctx, "g1", rosas(), 2)
	require.NoError(t, err)
	_, err = s.Add(ctx, "g1", rosas(), 0)
	require.Error(t, err)
	_, err = s.Clear(ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0}, seen)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	p := rosas()
	p.Stock = 1000

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, "g1", p, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 50, c.TotalItems)
}

func (s *Store) lockRefs(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[owner]; ok {
		return l.refs
	}
	return 0
}

func TestStore_ForgetKeepsOwnerLockExclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Add(ctx, "g1", rosas(), 1)
	require.NoError(t, err)

	release := s.lock("g1")

	forgotten := make(chan error, 1)
	go func() { forgotten <- s.Forget(ctx, "g1") }()
	require.Eventually(t, func() bool { return s.lockRefs("g1") == 2 }, time.Second, time.Millisecond)

	var holders sync.WaitGroup
	acquired := make(chan struct{}, 1)
	holders.Add(1)
	go func() {
		defer holders.Done()
		unlock := s.lock("g1")
		acquired <- struct{}{}
		unlock()
	}()
	require.Eventually(t, func() bool { return s.lockRefs("g1") == 3 }, time.Second, time.Millisecond)

	select {
	case <-acquired:
		t.Fatal("lock acquired while another caller holds it")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	require.NoError(t, <-forgotten)
	<-acquired
	holders.Wait()

	assert.Zero(t, s.lockRefs("g1"))
	c, err := s.Load(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty)
}

func TestStore_LastOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.LastOrder(ctx, "g1")
	assert.ErrorIs(t, err, ErrNoLastOrder)

	require.NoError(t, s.SaveLastOrder(ctx, "g1", LastOrder{PedidoID: 42, NumeroPedido: "FLO-0042", Total: decimal.NewFromInt(350)}))
	got, err := s.LastOrder(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.PedidoID)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(350)))

	require.NoError(t, s.Forget(ctx, "g1"))
	_, err = s.LastOrder(ctx, "g1")
	assert.ErrorIs(t, err, ErrNoLastOrder)
}

func TestGormStorage(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:cart_storage?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.StorageEntry{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	ctx := context.Background()
	storage := NewGormStorage(db)

	_, ok, err := storage.GetItem(ctx, "carrito:g1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.SetItem(ctx, "carrito:g1", "a"))
	require.NoError(t, storage.SetItem(ctx, "carrito:g1", "b"))
	v, ok, err := storage.GetItem(ctx, "carrito:g1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	s := NewStore(storage, zap.NewNop())
	want, err := s.Add(ctx, "g2", rosas(), 2)
	require.NoError(t, err)
	got, err := s.Load(ctx, "g2")
	require.NoError(t, err)
	assert.True(t, cmp.Equal(want, got, decimalEqual))

	require.NoError(t, storage.RemoveItem(ctx, "carrito:g1"))
	_, ok, err = storage.GetItem(ctx, "carrito:g1")
	require.NoError(t, err)
	assert.False(t, ok)
}
