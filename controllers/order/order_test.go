package orderControllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

type orderFixture struct {
	router  *gin.Engine
	history *models.OrderHistory
	carts   *cart.Store
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	log := zaptest.NewLogger(t)
	hub := realtime.NewHub(log)
	t.Cleanup(hub.Close)

	f := &orderFixture{
		router:  gin.New(),
		history: models.NewOrderHistory(db),
		carts:   cart.NewStore(cart.NewMemoryStorage(), log),
	}

	account := f.router.Group("/cuenta", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, c.GetHeader("X-Guest"))
		c.Next()
	})
	account.GET("/pedidos", GetMyOrdersHandler(f.history, log))
	account.GET("/pedidos/:numero", GetMyOrderHandler(f.history))
	account.GET("/ultimo-pedido", GetLastOrderHandler(f.carts))

	admin := f.router.Group("/admin")
	admin.GET("/pedidos", GetAllOrdersHandler(f.history))
	admin.PATCH("/pedidos/:pedido_id/estado", UpdateOrderStatusHandler(db, hub))
	admin.PATCH("/pedidos/:pedido_id/pago", UpdatePaymentStatusHandler(f.history, hub))

	ctx := context.Background()
	base := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)
	for i, o := range []models.Order{
		{GuestID: "g1", PedidoID: 10, NumeroPedido: "FLO-0010", PaymentMethod: "transfer", CreatedAt: base},
		{GuestID: "g1", PedidoID: 11, NumeroPedido: "FLO-0011", PaymentMethod: "cash", CreatedAt: base.Add(time.Hour)},
		{GuestID: "g2", PedidoID: 12, NumeroPedido: "FLO-0012", PaymentMethod: "mercadopago", CreatedAt: base.Add(2 * time.Hour)},
	} {
		o.Total = decimal.NewFromInt(int64(1000 * (i + 1)))
		o.Items = []models.OrderItem{{ProductID: 1, Name: "Ramo", UnitPrice: o.Total, Quantity: 1}}
		require.NoError(t, f.history.RecordOrder(ctx, &o))
	}
	return f
}

func (f *orderFixture) get(t *testing.T, guest, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Guest", guest)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *orderFixture) patch(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestAccountOrders(t *testing.T) {
	f := newOrderFixture(t)

	rec := f.get(t, "g1", "/cuenta/pedidos")
	require.Equal(t, http.StatusOK, rec.Code)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, "FLO-0011", orders[0].NumeroPedido, "newest first")
	assert.Len(t, orders[0].Items, 1)

	assert.Equal(t, http.StatusOK, f.get(t, "g1", "/cuenta/pedidos/FLO-0010").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "g1", "/cuenta/pedidos/FLO-0012").Code, "other guests' orders are hidden")

	rec = f.get(t, "g1", "/admin/pedidos")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	assert.Len(t, orders, 3)
}

func TestLastOrder(t *testing.T) {
	f := newOrderFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "g1", "/cuenta/ultimo-pedido").Code)

	require.NoError(t, f.carts.SaveLastOrder(context.Background(), "g1", cart.LastOrder{
		PedidoID:      11,
		NumeroPedido:  "FLO-0011",
		Total:         decimal.NewFromInt(2000),
		PaymentMethod: "cash",
	}))

	rec := f.get(t, "g1", "/cuenta/ultimo-pedido")
	require.Equal(t, http.StatusOK, rec.Code)
	var last cart.LastOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	assert.Equal(t, "FLO-0011", last.NumeroPedido)
	assert.True(t, decimal.NewFromInt(2000).Equal(last.Total))
}

func TestAdminStatusUpdates(t *testing.T) {
	f := newOrderFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.patch(t, "/admin/pedidos/abc/estado", `{"status":"cancelled"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.patch(t, "/admin/pedidos/10/estado", `{"status":"shipped"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.patch(t, "/admin/pedidos/99/estado", `{"status":"cancelled"}`).Code)
	require.Equal(t, http.StatusOK, f.patch(t, "/admin/pedidos/11/estado", `{"status":"cancelled"}`).Code)

	require.Equal(t, http.StatusOK, f.patch(t, "/admin/pedidos/10/pago", `{"payment_status":"paid"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.patch(t, "/admin/pedidos/99/pago", `{"payment_status":"paid"}`).Code)

	ctx := context.Background()
	paid, err := f.history.FindForGuest(ctx, "g1", "FLO-0010")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, paid.Status)

	cancelled, err := f.history.FindForGuest(ctx, "g1", "FLO-0011")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
}
