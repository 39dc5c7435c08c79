package productcontroller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/junaidrashid-git/floreria-api/models"
)

// ProductUpdate holds the optional fields of PUT /admin/productos/:id.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	Image       *string          `json:"image"`
	CategoryIDs []uint           `json:"category_ids"`
}

// UpdateProduct updates an existing product by ID. The row is locked so that stock
// edits do not race with each other.
func UpdateProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
			return
		}

		var input ProductUpdate
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
		if input.Price != nil && input.Price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid price"})
			return
		}

		var product models.Product
		err = db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
				return err
			}

			if input.Name != nil && *input.Name != "" {
				product.Name = *input.Name
			}
			if input.Description != nil {
				product.Description = *input.Description
			}
			if input.Price != nil {
				product.Price = *input.Price
			}
			if input.Stock != nil {
				product.Stock = *input.Stock
			}
			if input.Image != nil {
				product.Image = *input.Image
			}
			if err := tx.Save(&product).Error; err != nil {
				return err
			}

			if input.CategoryIDs != nil {
				var categories []models.Category
				if len(input.CategoryIDs) > 0 {
					if err := tx.Where("id IN ?", input.CategoryIDs).Find(&categories).Error; err != nil {
						return err
					}
				}
				if err := tx.Model(&product).Association("Categories").Replace(categories); err != nil {
					return err
				}
			}
			return tx.Preload("Categories").First(&product, id).Error
		})
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
			return
		}

		c.JSON(http.StatusOK, product)
	}
}
