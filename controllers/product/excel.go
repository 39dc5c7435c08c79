package productcontroller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/junaidrashid-git/floreria-api/models"
)

// Workbook columns, shared by import and export.
var catalogHeaders = []string{
	"ID", "Name", "Description", "Price", "Stock", "Image", "CategoryIDs", "CreatedAt", "UpdatedAt",
}

const minImportColumns = 7

var ErrEmptyWorkbook = errors.New("excel file is empty or missing header row")

type ImportResult struct {
	Created int `json:"created_count"`
	Updated int `json:"updated_count"`
	Skipped int `json:"skipped_count"`
}

// ImportWorkbook upserts the products of the first sheet. Rows with an existing ID
// update that product; other rows create one. Invalid rows are skipped.
func ImportWorkbook(ctx context.Context, db *gorm.DB, xlFile *xlsx.File) (ImportResult, error) {
	var result ImportResult
	if len(xlFile.Sheets) == 0 || xlFile.Sheets[0].MaxRow < 2 {
		return result, ErrEmptyWorkbook
	}
	db = db.WithContext(ctx)

	sheet := xlFile.Sheets[0]
	for i := 1; i < sheet.MaxRow; i++ {
		row := sheet.Rows[i]
		if row == nil || len(row.Cells) < minImportColumns {
			result.Skipped++
			continue
		}

		get := func(index int) string {
			if index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		idStr := get(0)
		name := get(1)
		price, err1 := decimal.NewFromString(get(3))
		stock, err2 := strconv.ParseFloat(get(4), 64)
		if name == "" || err1 != nil || err2 != nil || price.IsNegative() || stock < 0 {
			result.Skipped++
			continue
		}

		var categoryIDs []uint
		for _, part := range strings.Split(get(6), ",") {
			if id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64); err == nil {
				categoryIDs = append(categoryIDs, uint(id))
			}
		}
		var categories []models.Category
		if len(categoryIDs) > 0 {
			if err := db.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
				return result, err
			}
		}

		product := models.Product{
			Name:        name,
			Description: get(2),
			Price:       price.Round(2),
			Stock:       int(stock),
			Image:       get(5),
			Categories:  categories,
		}

		if id, err := strconv.ParseFloat(idStr, 64); err == nil && id > 0 {
			var existing models.Product
			if err := db.First(&existing, uint(id)).Error; err == nil {
				existing.Name = product.Name
				existing.Description = product.Description
				existing.Price = product.Price
				existing.Stock = product.Stock
				existing.Image = product.Image

				err := db.Transaction(func(tx *gorm.DB) error {
					if err := tx.Omit("Categories").Save(&existing).Error; err != nil {
						return err
					}
					return tx.Model(&existing).Association("Categories").Replace(categories)
				})
				if err != nil {
					result.Skipped++
				} else {
					result.Updated++
				}
				continue
			}
		}

		if err := db.Create(&product).Error; err == nil {
			result.Created++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// POST /admin/productos/import-excel (multipart field "file")
func ImportProductsFromExcel(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
			return
		}

		result, err := ImportWorkbook(c.Request.Context(), db, xlFile)
		if errors.Is(err, ErrEmptyWorkbook) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or missing header row"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Import failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Import completed",
			"created_count": result.Created,
			"updated_count": result.Updated,
			"skipped_count": result.Skipped,
		})
	}
}
