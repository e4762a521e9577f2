package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"salepoint-backend/internal/audit"
	"salepoint-backend/internal/auth"
	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateStockAdjustmentRequest struct {
	ProductID      uint   `json:"product_id"`
	AdjustmentType string `json:"adjustment_type"`
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
	AdjustedBy     string `json:"adjusted_by"`
	AdjustmentDate string `json:"adjustment_date"`
}

type StockAdjustmentResponse struct {
	ID             uint   `json:"id"`
	ProductID      uint   `json:"product_id"`
	ProductName    string `json:"product_name"`
	AdjustmentType string `json:"adjustment_type"`
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
	AdjustedBy     string `json:"adjusted_by"`
	AdjustmentDate string `json:"adjustment_date"`
	CreatedAt      string `json:"created_at"`
}

func newAdjustmentResponse(a models.StockAdjustment, productName string) StockAdjustmentResponse {
	return StockAdjustmentResponse{
		ID:             a.ID,
		ProductID:      a.ProductID,
		ProductName:    productName,
		AdjustmentType: string(a.AdjustmentType),
		QuantityChange: a.QuantityChange,
		Reason:         a.Reason,
		AdjustedBy:     a.AdjustedBy,
		AdjustmentDate: a.AdjustmentDate.Format(time.RFC3339),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
	}
}

func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// POST /api/stock-adjustments
//
// increase/decrease apply QuantityChange as a delta, correction sets the
// stock to QuantityChange verbatim. The audit record and the product
// mutation commit together.
func CreateStockAdjustmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateStockAdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Reason = strings.TrimSpace(body.Reason)
		body.AdjustedBy = strings.TrimSpace(body.AdjustedBy)

		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id is required")
		}
		if body.Reason == "" || body.AdjustedBy == "" {
			return fiber.NewError(fiber.StatusBadRequest, "reason and adjusted_by are required")
		}
		switch models.AdjustmentType(body.AdjustmentType) {
		case models.AdjustmentTypeIncrease, models.AdjustmentTypeDecrease, models.AdjustmentTypeCorrection:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Invalid adjustment type")
		}

		adjustmentDate := time.Now()
		if body.AdjustmentDate != "" {
			d, err := parseDateTime(body.AdjustmentDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid adjustment_date")
			}
			adjustmentDate = d
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ?", body.ProductID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		if product.IsService {
			return fiber.NewError(fiber.StatusBadRequest, "Cannot adjust stock for services")
		}

		currentStock := 0
		if product.StockQuantity != nil {
			currentStock = *product.StockQuantity
		}

		newStock := currentStock
		switch models.AdjustmentType(body.AdjustmentType) {
		case models.AdjustmentTypeIncrease:
			newStock = currentStock + body.QuantityChange
		case models.AdjustmentTypeDecrease:
			newStock = currentStock - body.QuantityChange
			if newStock < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Stock adjustment would result in negative stock")
			}
		case models.AdjustmentTypeCorrection:
			newStock = body.QuantityChange
			if newStock < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Stock correction cannot result in negative stock")
			}
		}

		adjustment := models.StockAdjustment{
			ProductID:      body.ProductID,
			AdjustmentType: models.AdjustmentType(body.AdjustmentType),
			QuantityChange: body.QuantityChange,
			Reason:         body.Reason,
			AdjustedBy:     body.AdjustedBy,
			AdjustmentDate: adjustmentDate,
		}

		tx := database.DB.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		if err := tx.Create(&adjustment).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create stock adjustment")
		}
		if err := tx.Model(&models.Product{}).
			Where("id = ?", product.ID).
			Updates(map[string]interface{}{
				"stock_quantity": newStock,
				"updated_at":     time.Now(),
			}).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update stock")
		}
		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not commit stock adjustment")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "stock_adjustment",
				EntityID:    adjustment.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Stock %s on %s: %d -> %d", adjustment.AdjustmentType, product.Name, currentStock, newStock),
				After:       newAdjustmentResponse(adjustment, product.Name),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(newAdjustmentResponse(adjustment, product.Name))
	}
}

// GET /api/stock-adjustments
func ListStockAdjustmentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var adjustments []models.StockAdjustment
		if err := database.DB.
			Preload("Product").
			Order("adjustment_date DESC, id DESC").
			Find(&adjustments).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list stock adjustments")
		}

		resp := make([]StockAdjustmentResponse, 0, len(adjustments))
		for _, a := range adjustments {
			resp = append(resp, newAdjustmentResponse(a, a.Product.Name))
		}
		return c.JSON(resp)
	}
}

type LowStockRow struct {
	ProductID         uint   `json:"product_id"`
	ProductName       string `json:"product_name"`
	CurrentStock      int    `json:"current_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	StockDifference   int    `json:"stock_difference"`
}

// GET /api/stock-adjustments/low-stock
//
// Physical products whose stock (null counts as 0) is at or below their
// threshold. Products without a threshold are flagged only when the stock
// is exactly 0.
func LowStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.Where("is_service = ?", false).Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list products")
		}

		rows := make([]LowStockRow, 0)
		for _, p := range products {
			currentStock := 0
			if p.StockQuantity != nil {
				currentStock = *p.StockQuantity
			}

			flagged := false
			if p.LowStockThreshold != nil {
				flagged = currentStock <= *p.LowStockThreshold
			} else {
				flagged = currentStock == 0
			}
			if !flagged {
				continue
			}

			threshold := 0
			if p.LowStockThreshold != nil {
				threshold = *p.LowStockThreshold
			}

			rows = append(rows, LowStockRow{
				ProductID:         p.ID,
				ProductName:       p.Name,
				CurrentStock:      currentStock,
				LowStockThreshold: threshold,
				StockDifference:   threshold - currentStock,
			})
		}

		sort.Slice(rows, func(i, j int) bool {
			if rows[i].CurrentStock != rows[j].CurrentStock {
				return rows[i].CurrentStock < rows[j].CurrentStock
			}
			return rows[i].ProductID < rows[j].ProductID
		})

		return c.JSON(rows)
	}
}
