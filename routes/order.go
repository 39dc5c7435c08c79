package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/junaidrashid-git/floreria-api/controllers/order"
	userControllers "github.com/junaidrashid-git/floreria-api/controllers/user"
	"github.com/junaidrashid-git/floreria-api/middleware"
)

// SetupOrderRoutes registers the shopper's order history under "/cuenta".
func SetupOrderRoutes(r *gin.Engine, deps Dependencies) {
	account := r.Group("/cuenta")
	account.Use(middleware.ValidateToken(deps.Config.JWTSecret))
	{
		account.GET("", userControllers.GetGuest(deps.DB))
		account.GET("/pedidos", orderControllers.GetMyOrdersHandler(deps.Orders, deps.Logger))
		account.GET("/pedidos/:numero", orderControllers.GetMyOrderHandler(deps.Orders))

		// Summary shown on the success page after checkout
		account.GET("/ultimo-pedido", orderControllers.GetLastOrderHandler(deps.Carts))
	}
}
