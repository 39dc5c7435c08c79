package paymentControllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	orderControllers "github.com/junaidrashid-git/floreria-api/controllers/order"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

// PaymentWebhookRequest is the notification the payment provider posts once a
// payment started by the shop API changes state.
type PaymentWebhookRequest struct {
	PedidoID int64  `json:"pedido_id" binding:"required"`
	Status   string `json:"status" binding:"required"` // approved, pending, rejected, refunded...
}

// POST /pagos/webhook. The signature is verified by middleware.PaymentWebhookAuth.
func PaymentWebhookHandler(history *models.OrderHistory, hub *realtime.Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PaymentWebhookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}

		status, err := models.MapPaymentStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := history.UpdatePaymentStatus(c.Request.Context(), req.PedidoID, status)
		if errors.Is(err, models.ErrOrderNotFound) {
			logger.Warn("payment notification for unknown order", zap.Int64("pedido_id", req.PedidoID))
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			logger.Error("applying payment notification failed", zap.Int64("pedido_id", req.PedidoID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment status"})
			return
		}

		logger.Info("payment status updated",
			zap.Int64("pedido_id", order.PedidoID),
			zap.String("payment_status", string(order.PaymentStatus)))
		orderControllers.PublishPaymentUpdate(hub, order)
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated"})
	}
}
