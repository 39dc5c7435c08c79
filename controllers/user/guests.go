package userControllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/middleware"
	"github.com/junaidrashid-git/floreria-api/models"
)

type guestResponse struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	Orders    int64     `json:"orders"`
}

// GET /cuenta
func GetGuest(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var guest models.GuestUser
		if err := db.WithContext(c.Request.Context()).First(&guest, "id = ?", middleware.GuestID(c)).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		var orders int64
		if err := db.WithContext(c.Request.Context()).Model(&models.Order{}).Where("guest_id = ?", guest.ID).Count(&orders).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
			return
		}

		c.JSON(http.StatusOK, guestResponse{ID: guest.ID, ExpiresAt: guest.ExpiresAt, Orders: orders})
	}
}

// GET /admin/invitados lists guests that have not expired yet.
func GetActiveGuests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var guests []models.GuestUser
		if err := db.WithContext(c.Request.Context()).
			Where("expires_at > ?", time.Now()).
			Order("expires_at desc").
			Find(&guests).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch guests"})
			return
		}

		c.JSON(http.StatusOK, guests)
	}
}
