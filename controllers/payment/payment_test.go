package paymentControllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

const webhookSecret = "whsec_test"

func newWebhookRouter(t *testing.T) (*gin.Engine, *models.OrderHistory) {
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

	history := models.NewOrderHistory(db)
	require.NoError(t, history.RecordOrder(context.Background(), &models.Order{
		GuestID:       "g1",
		PedidoID:      77,
		NumeroPedido:  "FLO-0077",
		Total:         decimal.NewFromInt(3300),
		PaymentMethod: "mercadopago",
		Status:        models.OrderStatusCreated,
		PaymentStatus: models.PaymentStatusPending,
	}))

	log := zaptest.NewLogger(t)
	hub := realtime.NewHub(log)
	t.Cleanup(hub.Close)

	r := gin.New()
	r.POST("/pagos/webhook",
		middleware.PaymentWebhookAuth(webhookSecret, "production", log),
		PaymentWebhookHandler(history, hub, log))
	return r, history
}

func postWebhook(r *gin.Engine, body string, signed bool) int {
	req := httptest.NewRequest(http.MethodPost, "/pagos/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signed {
		req.Header.Set("X-Signature", middleware.SignPayload(webhookSecret, []byte(body)))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestPaymentWebhook(t *testing.T) {
	r, history := newWebhookRouter(t)

	assert.Equal(t, http.StatusForbidden, postWebhook(r, `{"pedido_id":77,"status":"approved"}`, false))
	assert.Equal(t, http.StatusBadRequest, postWebhook(r, `{"pedido_id":77,"status":"teleported"}`, true))
	assert.Equal(t, http.StatusNotFound, postWebhook(r, `{"pedido_id":78,"status":"approved"}`, true))
	require.Equal(t, http.StatusOK, postWebhook(r, `{"pedido_id":77,"status":"approved"}`, true))

	order, err := history.FindForGuest(context.Background(), "g1", "FLO-0077")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)

	require.Equal(t, http.StatusOK, postWebhook(r, `{"pedido_id":77,"status":"refunded"}`, true))
	order, err = history.FindForGuest(context.Background(), "g1", "FLO-0077")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, order.PaymentStatus)
}
