package routes

import (
	"github.com/gin-gonic/gin"

	paymentControllers "github.com/junaidrashid-git/floreria-api/controllers/payment"
	"github.com/junaidrashid-git/floreria-api/middleware"
)

func SetupPaymentRoutes(r *gin.Engine, deps Dependencies) {
	payment := r.Group("/pagos")
	{
		// Webhook endpoint: middleware handles sandbox/prod verification
		payment.POST("/webhook",
			middleware.PaymentWebhookAuth(deps.Config.PaymentWebhookSecret, deps.Config.PaymentMode, deps.Logger),
			paymentControllers.PaymentWebhookHandler(deps.Orders, deps.Hub, deps.Logger),
		)
	}
}
