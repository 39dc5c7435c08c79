package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/cart"
	"github.com/junaidrashid-git/floreria-api/config"
	checkoutControllers "github.com/junaidrashid-git/floreria-api/controllers/checkout"
	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
	"github.com/junaidrashid-git/floreria-api/realtime"
)

// Dependencies is everything the route groups hand to their controllers.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *zap.Logger
	Carts    *cart.Store
	Orders   *models.OrderHistory
	Checkout *checkoutControllers.CheckoutController
	Hub      *realtime.Hub
	Limiter  *middleware.RateLimiter
}

// SetupRoutes is the single entry-point that wires up every route group.
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": deps.Config.Version})
	})
	if deps.Config.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Public auth routes (no middleware)
	SetupAuthRoutes(r, deps)

	// Catalog, cart and checkout (guest JWT)
	SetupUserRoutes(r, deps)

	// Account order history (guest JWT)
	SetupOrderRoutes(r, deps)

	// Admin routes (API-Key)
	SetupAdminRoutes(r, deps)

	// Payment provider notifications
	SetupPaymentRoutes(r, deps)
}
