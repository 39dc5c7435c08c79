package productcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/models"
)

var sortColumns = map[string]string{
	"name":       "products.name",
	"price":      "products.price",
	"created_at": "products.created_at",
}

// GetProducts lists the catalog.
// Query: search, category_id, min_price, max_price, in_stock, sort_by (name|price|created_at), order (asc|desc)
func GetProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := strings.TrimSpace(c.Query("search"))
		categoryID := c.Query("category_id")
		minPriceStr := c.Query("min_price")
		maxPriceStr := c.Query("max_price")
		sortColumn, ok := sortColumns[c.DefaultQuery("sort_by", "created_at")]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sort_by"})
			return
		}
		sortOrder := strings.ToLower(c.DefaultQuery("order", "desc"))
		if sortOrder != "asc" && sortOrder != "desc" {
			sortOrder = "desc"
		}

		query := db.WithContext(c.Request.Context()).Model(&models.Product{}).Preload("Categories")

		if search != "" {
			likePattern := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", likePattern, likePattern)
		}

		if minPriceStr != "" {
			mp, err := decimal.NewFromString(minPriceStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_price"})
				return
			}
			query = query.Where("products.price >= ?", mp)
		}
		if maxPriceStr != "" {
			mp, err := decimal.NewFromString(maxPriceStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_price"})
				return
			}
			query = query.Where("products.price <= ?", mp)
		}

		if c.Query("in_stock") == "true" {
			query = query.Where("products.stock > 0")
		}

		if categoryID != "" {
			cid, err := strconv.ParseUint(categoryID, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category_id"})
				return
			}
			query = query.Where("products.id IN (?)",
				db.Table("product_categories").Select("product_id").Where("category_id = ?", uint(cid)))
		}

		var products []models.Product
		if err := query.Order(sortColumn + " " + sortOrder).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}
		c.JSON(http.StatusOK, products)
	}
}
