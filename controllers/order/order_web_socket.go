package orderControllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

const (
	EventOrderCreated = "pedido_creado"
	EventOrderStatus  = "pedido_estado"
	EventPayment      = "pago_actualizado"
)

// GET /admin/pedidos/ws streams new orders and status changes to the admin panel.
func OrderWebSocketHandler(hub *realtime.Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Serve(c.Writer, c.Request, realtime.OrdersTopic); err != nil {
			logger.Debug("orders websocket upgrade failed", zap.Error(err))
		}
	}
}

// BroadcastNewOrder returns a callback publishing every recorded order to the admin
// feed.
func BroadcastNewOrder(hub *realtime.Hub) func(*models.Order) {
	return func(order *models.Order) {
		hub.Publish(realtime.OrdersTopic, EventOrderCreated, order)
	}
}

func PublishPaymentUpdate(hub *realtime.Hub, order *models.Order) {
	hub.Publish(realtime.OrdersTopic, EventPayment, gin.H{
		"pedido_id":      order.PedidoID,
		"numero_pedido":  order.NumeroPedido,
		"payment_status": order.PaymentStatus,
		"status":         order.Status,
	})
}
