package orderControllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

// -------- Request Structs --------

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

// -------- Helpers --------

func mapOrderStatus(status string) (models.OrderStatus, error) {
	switch strings.ToLower(status) {
	case string(models.OrderStatusCreated):
		return models.OrderStatusCreated, nil
	case string(models.OrderStatusConfirmed):
		return models.OrderStatusConfirmed, nil
	case string(models.OrderStatusCancelled):
		return models.OrderStatusCancelled, nil
	default:
		return "", errors.New("invalid order status")
	}
}

func parsePedidoID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("pedido_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pedido_id"})
		return 0, false
	}
	return id, true
}

// -------- Account handlers --------

// GET /cuenta/pedidos
func GetMyOrdersHandler(history *models.OrderHistory, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := history.ListByGuest(c.Request.Context(), middleware.GuestID(c))
		if err != nil {
			logger.Error("listing guest orders failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudieron cargar tus pedidos"})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /cuenta/pedidos/:numero
func GetMyOrderHandler(history *models.OrderHistory) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := history.FindForGuest(c.Request.Context(), middleware.GuestID(c), c.Param("numero"))
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pedido no encontrado"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// GET /cuenta/ultimo-pedido returns the summary shown on the success page.
func GetLastOrderHandler(store *cart.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		last, err := store.LastOrder(c.Request.Context(), middleware.GuestID(c))
		if errors.Is(err, cart.ErrNoLastOrder) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Todavía no realizaste ningún pedido"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, last)
	}
}

// -------- Admin handlers --------

// GET /admin/pedidos
func GetAllOrdersHandler(history *models.OrderHistory) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := history.ListAll(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// PATCH /admin/pedidos/:pedido_id/estado
func UpdateOrderStatusHandler(db *gorm.DB, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		pedidoID, ok := parsePedidoID(c)
		if !ok {
			return
		}
		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := mapOrderStatus(req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res := db.WithContext(c.Request.Context()).Model(&models.Order{}).
			Where("pedido_id = ?", pedidoID).
			Update("status", newStatus)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order status"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		hub.Publish(realtime.OrdersTopic, EventOrderStatus, gin.H{"pedido_id": pedidoID, "status": newStatus})
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated successfully"})
	}
}

// PATCH /admin/pedidos/:pedido_id/pago confirms offline payments (transfer, cash).
func UpdatePaymentStatusHandler(history *models.OrderHistory, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		pedidoID, ok := parsePedidoID(c)
		if !ok {
			return
		}
		var req UpdatePaymentStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		newStatus, err := models.MapPaymentStatus(req.PaymentStatus)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		order, err := history.UpdatePaymentStatus(c.Request.Context(), pedidoID, newStatus)
		if errors.Is(err, models.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update payment status"})
			return
		}
		PublishPaymentUpdate(hub, order)
		c.JSON(http.StatusOK, gin.H{"message": "Payment status updated successfully"})
	}
}
