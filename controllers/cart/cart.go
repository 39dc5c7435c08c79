package cartControllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

type CartItemInput struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

func respondCartError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "La cantidad debe ser al menos 1"})
	case errors.Is(err, cart.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{"error": "No hay stock suficiente para esa cantidad"})
	case errors.Is(err, cart.ErrItemNotInCart):
		c.JSON(http.StatusNotFound, gin.H{"error": "El producto no está en el carrito"})
	default:
		logger.Error("cart operation failed", zap.String("guest_id", middleware.GuestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No se pudo actualizar el carrito"})
	}
}

// GET /carrito
func GetCart(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		current, err := store.Reconcile(c.Request.Context(), middleware.GuestID(c))
		if err != nil {
			respondCartError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, current)
	}
}

// POST /carrito/agregar
func AddCartItem(db *gorm.DB, store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		var product models.Product
		if err := db.WithContext(c.Request.Context()).First(&product, "id = ?", input.ProductID).Error; err != nil {
			status := http.StatusInternalServerError
			errMsg := "Failed to validate product"
			if errors.Is(err, gorm.ErrRecordNotFound) {
				status = http.StatusBadRequest
				errMsg = "Product does not exist"
			}
			c.JSON(status, gin.H{"error": errMsg})
			return
		}

		updated, err := store.Add(c.Request.Context(), middleware.GuestID(c), cart.ProductFromModel(product), input.Quantity)
		if err != nil {
			respondCartError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// PUT /carrito/actualizar
func UpdateCartItem(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CartItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		updated, err := store.UpdateQuantity(c.Request.Context(), middleware.GuestID(c), input.ProductID, input.Quantity)
		if err != nil {
			respondCartError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /carrito/:product_id
func DeleteCartItem(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
			return
		}

		updated, err := store.Remove(c.Request.Context(), middleware.GuestID(c), uint(productID))
		if err != nil {
			respondCartError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// DELETE /carrito
func ClearCart(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := store.Clear(c.Request.Context(), middleware.GuestID(c))
		if err != nil {
			respondCartError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// POST /carrito/sincronizar
func SyncCart(store *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := store.Push(c.Request.Context(), middleware.GuestID(c))
		if err != nil {
			respondCartError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// GET /carrito/ws
func CartWebSocketHandler(hub *realtime.Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Serve(c.Writer, c.Request, realtime.CartTopic(middleware.GuestID(c))); err != nil {
			logger.Debug("cart websocket upgrade failed", zap.Error(err))
		}
	}
}
