package routes

import (
	"github.com/gin-gonic/gin"

	orderControllers "github.com/junaidrashid-git/floreria-api/controllers/order"
	productcontroller "github.com/junaidrashid-git/floreria-api/controllers/product"
	userControllers "github.com/junaidrashid-git/floreria-api/controllers/user"
	"github.com/junaidrashid-git/floreria-api/middleware"
)

// SetupAdminRoutes registers all "/admin/*" endpoints. Requires API-Key middleware.
func SetupAdminRoutes(r *gin.Engine, deps Dependencies) {
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.ValidateAPIKey(deps.Config.AdminAPIKey))
	{
		// ─────────── Guests ───────────
		adminGroup.GET("/invitados", userControllers.GetActiveGuests(deps.DB))

		// ─────────── Product Management ───────────
		productAdmin := adminGroup.Group("/productos")
		{
			productAdmin.PUT("/:id", productcontroller.UpdateProduct(deps.DB))
			productAdmin.DELETE("/:id", productcontroller.DeleteProduct(deps.DB))
			productAdmin.POST("/import-excel", productcontroller.ImportProductsFromExcel(deps.DB))
			productAdmin.GET("/export-excel", productcontroller.ExportProductsToExcel(deps.DB))
		}

		// ─────────── Category Management ───────────
		adminGroup.POST("/categorias", productcontroller.CreateCategory(deps.DB))

		// ─────────── Orders ───────────
		orderAdmin := adminGroup.Group("/pedidos")
		{
			orderAdmin.GET("", orderControllers.GetAllOrdersHandler(deps.Orders))
			orderAdmin.GET("/ws", orderControllers.OrderWebSocketHandler(deps.Hub, deps.Logger))
			orderAdmin.PATCH("/:pedido_id/estado", orderControllers.UpdateOrderStatusHandler(deps.DB, deps.Hub))
			orderAdmin.PATCH("/:pedido_id/pago", orderControllers.UpdatePaymentStatusHandler(deps.Orders, deps.Hub))
		}
	}
}
