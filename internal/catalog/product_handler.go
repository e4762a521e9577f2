package catalog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"salepoint-backend/internal/audit"
	"salepoint-backend/internal/auth"
	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ProductResponse struct {
	ID                uint    `json:"id"`
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	Price             float64 `json:"price"`
	StockQuantity     *int    `json:"stock_quantity"`
	IsService         bool    `json:"is_service"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

type CreateProductRequest struct {
	Name              string  `json:"name"`
	Description       *string `json:"description"`
	Price             float64 `json:"price"`
	StockQuantity     *int    `json:"stock_quantity"`
	IsService         bool    `json:"is_service"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
}

type UpdateProductRequest struct {
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Price             *float64 `json:"price"`
	StockQuantity     *int     `json:"stock_quantity"`
	IsService         *bool    `json:"is_service"`
	LowStockThreshold *int     `json:"low_stock_threshold"`
}

func newProductResponse(p models.Product) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Price:             p.Price,
		StockQuantity:     p.StockQuantity,
		IsService:         p.IsService,
		LowStockThreshold: p.LowStockThreshold,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}

// GET /api/products
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list products")
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, newProductResponse(p))
		}
		return c.JSON(res)
	}
}

// POST /api/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Product name is required")
		}
		if body.Price <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Price must be positive")
		}
		if body.StockQuantity != nil && *body.StockQuantity < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Stock quantity cannot be negative")
		}
		if body.LowStockThreshold != nil && *body.LowStockThreshold < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Low stock threshold cannot be negative")
		}

		p := models.Product{
			Name:              body.Name,
			Description:       body.Description,
			Price:             body.Price,
			StockQuantity:     body.StockQuantity,
			IsService:         body.IsService,
			LowStockThreshold: body.LowStockThreshold,
		}
		// services never carry stock fields
		if p.IsService {
			p.StockQuantity = nil
			p.LowStockThreshold = nil
		}

		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create product")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Product created: %s", p.Name),
				After:       newProductResponse(p),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(newProductResponse(p))
	}
}

// PUT /api/products/:id
// Partial update: absent fields keep their value, fields explicitly set to
// null overwrite to null. Key presence is detected on the raw body because
// a pointer field alone cannot tell "absent" from "null".
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Product
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := newProductResponse(p)

		if _, ok := raw["name"]; ok {
			if body.Name == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Product name cannot be null")
			}
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Product name cannot be empty")
			}
			p.Name = name
		}
		if _, ok := raw["price"]; ok {
			if body.Price == nil || *body.Price <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Price must be positive")
			}
			p.Price = *body.Price
		}
		if _, ok := raw["description"]; ok {
			p.Description = body.Description
		}
		if _, ok := raw["stock_quantity"]; ok {
			if body.StockQuantity != nil && *body.StockQuantity < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Stock quantity cannot be negative")
			}
			p.StockQuantity = body.StockQuantity
		}
		if _, ok := raw["low_stock_threshold"]; ok {
			if body.LowStockThreshold != nil && *body.LowStockThreshold < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Low stock threshold cannot be negative")
			}
			p.LowStockThreshold = body.LowStockThreshold
		}
		if _, ok := raw["is_service"]; ok {
			if body.IsService == nil {
				return fiber.NewError(fiber.StatusBadRequest, "is_service cannot be null")
			}
			p.IsService = *body.IsService
		}
		if p.IsService {
			p.StockQuantity = nil
			p.LowStockThreshold = nil
		}

		if err := database.DB.Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update product")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Product updated: %s", p.Name),
				Before:      before,
				After:       newProductResponse(p),
			})
		}

		return c.JSON(newProductResponse(p))
	}
}

// DELETE /api/products/:id
// Deletion is blocked while any sale item or stock adjustment still
// references the product.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var p models.Product
		if err := database.DB.First(&p, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}

		var saleItemCount int64
		if err := database.DB.Model(&models.SaleItem{}).
			Where("product_id = ?", p.ID).
			Count(&saleItemCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete product")
		}
		var adjustmentCount int64
		if err := database.DB.Model(&models.StockAdjustment{}).
			Where("product_id = ?", p.ID).
			Count(&adjustmentCount).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete product")
		}

		if saleItemCount > 0 || adjustmentCount > 0 {
			return fiber.NewError(fiber.StatusConflict,
				fmt.Sprintf("Product %q is referenced by existing sales or stock adjustments and cannot be deleted", p.Name))
		}

		before := newProductResponse(p)

		if err := database.DB.Delete(&models.Product{}, "id = ?", p.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete product")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("Product deleted: %s", p.Name),
				Before:      before,
			})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
