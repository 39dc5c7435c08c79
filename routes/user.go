package routes

import (
	"github.com/gin-gonic/gin"

	cartControllers "github.com/junaidrashid-git/floreria-api/controllers/cart"
	productControllers "github.com/junaidrashid-git/floreria-api/controllers/product"
	"github.com/junaidrashid-git/floreria-api/middleware"
)

// SetupUserRoutes registers the storefront endpoints. Browsing is public; cart and
// checkout require a guest token.
func SetupUserRoutes(r *gin.Engine, deps Dependencies) {
	// ──────────────── Browse Products ────────────────
	r.GET("/productos", productControllers.GetProducts(deps.DB))
	r.GET("/productos/:id", productControllers.GetProductByID(deps.DB))
	r.GET("/categorias", productControllers.GetAllCategories(deps.DB))

	limit := deps.Limiter.Middleware()

	// ──────────────── Shopping Cart ────────────────
	cartGroup := r.Group("/carrito")
	cartGroup.Use(middleware.ValidateToken(deps.Config.JWTSecret))
	{
		cartGroup.GET("", cartControllers.GetCart(deps.Carts, deps.Logger))
		cartGroup.GET("/ws", cartControllers.CartWebSocketHandler(deps.Hub, deps.Logger))
		cartGroup.POST("/agregar", limit, cartControllers.AddCartItem(deps.DB, deps.Carts, deps.Logger))
		cartGroup.PUT("/actualizar", limit, cartControllers.UpdateCartItem(deps.Carts, deps.Logger))
		cartGroup.DELETE("/:product_id", limit, cartControllers.DeleteCartItem(deps.Carts, deps.Logger))
		cartGroup.DELETE("", limit, cartControllers.ClearCart(deps.Carts, deps.Logger))
		cartGroup.POST("/sincronizar", limit, cartControllers.SyncCart(deps.Carts, deps.Logger))
	}

	// ──────────────── Checkout ────────────────
	checkoutGroup := r.Group("/checkout")
	checkoutGroup.Use(middleware.ValidateToken(deps.Config.JWTSecret))
	deps.Checkout.RegisterRoutes(checkoutGroup, limit)
}
