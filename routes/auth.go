package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/junaidrashid-git/floreria-api/auth"
)

const guestTTL = 24 * time.Hour

// SetupAuthRoutes registers all "/auth/*" endpoints.
func SetupAuthRoutes(r *gin.Engine, deps Dependencies) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/invitado", auth.CreateGuestUser(deps.DB, deps.Config.JWTSecret, guestTTL, deps.Logger))
	}
}
