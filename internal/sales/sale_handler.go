package sales

import (
	"fmt"
	"math"
	"time"

	"salepoint-backend/internal/audit"
	"salepoint-backend/internal/auth"
	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// amountTolerance absorbs rounding on the two-decimal money columns.
const amountTolerance = 0.01

type SaleItemInput struct {
	ProductID uint    `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type CreateSaleRequest struct {
	CustomerID      *uint           `json:"customer_id"`
	TotalAmount     float64         `json:"total_amount"`
	PaymentMethod   string          `json:"payment_method"`
	PaymentStatus   string          `json:"payment_status"`
	TransactionDate string          `json:"transaction_date"`
	Notes           *string         `json:"notes"`
	Items           []SaleItemInput `json:"items"`
}

type SaleResponse struct {
	ID              uint    `json:"id"`
	CustomerID      *uint   `json:"customer_id"`
	TotalAmount     float64 `json:"total_amount"`
	PaymentMethod   string  `json:"payment_method"`
	PaymentStatus   string  `json:"payment_status"`
	TransactionDate string  `json:"transaction_date"`
	Notes           *string `json:"notes"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type SaleItemResponse struct {
	ID        uint    `json:"id"`
	SaleID    uint    `json:"sale_id"`
	ProductID uint    `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
	CreatedAt string  `json:"created_at"`
}

// NewSaleResponse is shared with the customer history endpoint.
func NewSaleResponse(s models.Sale) SaleResponse {
	return SaleResponse{
		ID:              s.ID,
		CustomerID:      s.CustomerID,
		TotalAmount:     s.TotalAmount,
		PaymentMethod:   string(s.PaymentMethod),
		PaymentStatus:   string(s.PaymentStatus),
		TransactionDate: s.TransactionDate.Format(time.RFC3339),
		Notes:           s.Notes,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

func newSaleItemResponse(it models.SaleItem) SaleItemResponse {
	return SaleItemResponse{
		ID:        it.ID,
		SaleID:    it.SaleID,
		ProductID: it.ProductID,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		Subtotal:  it.Subtotal,
		CreatedAt: it.CreatedAt.Format(time.RFC3339),
	}
}

func validPaymentMethod(m string) bool {
	switch models.PaymentMethod(m) {
	case models.PaymentMethodCash, models.PaymentMethodBankTransfer,
		models.PaymentMethodCreditCard, models.PaymentMethodEWallet,
		models.PaymentMethodOther:
		return true
	}
	return false
}

func validPaymentStatus(s string) bool {
	switch models.PaymentStatus(s) {
	case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusCancelled:
		return true
	}
	return false
}

func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// POST /api/sales
//
// Validates the whole request against a snapshot first, then commits the
// sale header, its items and the stock decrements in one transaction.
// The decrement itself is a conditional UPDATE keyed on the current stock,
// so a concurrent sale racing past the snapshot check still cannot drive
// stock negative; zero affected rows aborts the transaction.
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.TotalAmount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Total amount must be positive")
		}
		if !validPaymentMethod(body.PaymentMethod) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid payment method")
		}
		if body.PaymentStatus == "" {
			body.PaymentStatus = string(models.PaymentStatusPaid)
		}
		if !validPaymentStatus(body.PaymentStatus) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid payment status")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "A sale requires at least one item")
		}
		for _, it := range body.Items {
			if it.ProductID == 0 || it.Quantity <= 0 || it.UnitPrice <= 0 || it.Subtotal <= 0 {
				return fiber.NewError(fiber.StatusBadRequest,
					"Each item requires product_id, positive quantity, unit price and subtotal")
			}
		}

		transactionDate := time.Now()
		if body.TransactionDate != "" {
			d, err := parseDateTime(body.TransactionDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid transaction_date")
			}
			transactionDate = d
		}

		// 1. customer must exist when referenced
		if body.CustomerID != nil {
			var customer models.Customer
			if err := database.DB.First(&customer, "id = ?", *body.CustomerID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound,
					fmt.Sprintf("Customer with ID %d not found", *body.CustomerID))
			}
		}

		// 2. resolve the distinct product set in one query
		productIDs := make([]uint, 0, len(body.Items))
		seen := make(map[uint]bool)
		for _, it := range body.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				productIDs = append(productIDs, it.ProductID)
			}
		}

		var products []models.Product
		if err := database.DB.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load products")
		}
		if len(products) != len(productIDs) {
			return fiber.NewError(fiber.StatusNotFound, "One or more products not found")
		}
		productMap := make(map[uint]models.Product, len(products))
		for _, p := range products {
			productMap[p.ID] = p
		}

		// 3.+4. per-item subtotal and overall total, both within tolerance
		calculatedTotal := 0.0
		requiredQty := make(map[uint]float64) // aggregated per product
		for _, it := range body.Items {
			p := productMap[it.ProductID]
			expected := it.Quantity * it.UnitPrice
			if math.Abs(it.Subtotal-expected) > amountTolerance {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("Invalid subtotal for product %q. Expected: %v, Provided: %v", p.Name, expected, it.Subtotal))
			}
			calculatedTotal += it.Subtotal
			requiredQty[it.ProductID] += it.Quantity
		}
		if math.Abs(body.TotalAmount-calculatedTotal) > amountTolerance {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Total amount mismatch. Expected: %v, Provided: %v", calculatedTotal, body.TotalAmount))
		}

		// 5. stock check against the snapshot; services and null-stock
		// products are exempt
		type decrement struct {
			productID uint
			quantity  float64
		}
		decrements := make([]decrement, 0, len(requiredQty))
		for _, pid := range productIDs {
			p := productMap[pid]
			required := requiredQty[pid]
			if p.IsService || p.StockQuantity == nil {
				continue
			}
			if float64(*p.StockQuantity) < required {
				return fiber.NewError(fiber.StatusConflict,
					fmt.Sprintf("Insufficient stock for product %q. Available: %d, Required: %v",
						p.Name, *p.StockQuantity, required))
			}
			decrements = append(decrements, decrement{productID: pid, quantity: required})
		}

		// atomic commit: sale header, items, stock decrements
		tx := database.DB.Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()

		sale := models.Sale{
			CustomerID:      body.CustomerID,
			TotalAmount:     body.TotalAmount,
			PaymentMethod:   models.PaymentMethod(body.PaymentMethod),
			PaymentStatus:   models.PaymentStatus(body.PaymentStatus),
			TransactionDate: transactionDate,
			Notes:           body.Notes,
		}
		if err := tx.Create(&sale).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create sale")
		}

		// one stored row per request line, duplicates are not merged
		items := make([]models.SaleItem, 0, len(body.Items))
		for _, it := range body.Items {
			items = append(items, models.SaleItem{
				SaleID:    sale.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
				Subtotal:  it.Subtotal,
			})
		}
		if err := tx.Create(&items).Error; err != nil {
			tx.Rollback()
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create sale items")
		}

		for _, d := range decrements {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", d.productID, d.quantity).
				Updates(map[string]interface{}{
					"stock_quantity": gorm.Expr("stock_quantity - ?", d.quantity),
					"updated_at":     time.Now(),
				})
			if res.Error != nil {
				tx.Rollback()
				return fiber.NewError(fiber.StatusInternalServerError, "Could not update stock")
			}
			if res.RowsAffected == 0 {
				// stock moved under us between snapshot and commit
				tx.Rollback()
				p := productMap[d.productID]
				return fiber.NewError(fiber.StatusConflict,
					fmt.Sprintf("Insufficient stock for product %q", p.Name))
			}
		}

		if err := tx.Commit().Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not commit sale")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "sale",
				EntityID:    sale.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Sale recorded: %.2f via %s", sale.TotalAmount, sale.PaymentMethod),
				After:       NewSaleResponse(sale),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(NewSaleResponse(sale))
	}
}

// GET /api/sales
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var salesList []models.Sale
		if err := database.DB.
			Order("transaction_date DESC, id DESC").
			Find(&salesList).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list sales")
		}

		resp := make([]SaleResponse, 0, len(salesList))
		for _, s := range salesList {
			resp = append(resp, NewSaleResponse(s))
		}
		return c.JSON(resp)
	}
}

// GET /api/sales/:id
func GetSaleDetailsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var sale models.Sale
		if err := database.DB.First(&sale, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound,
				fmt.Sprintf("Sale with id %s not found", id))
		}

		var items []models.SaleItem
		if err := database.DB.
			Where("sale_id = ?", sale.ID).
			Order("id asc").
			Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load sale items")
		}

		itemResp := make([]SaleItemResponse, 0, len(items))
		for _, it := range items {
			itemResp = append(itemResp, newSaleItemResponse(it))
		}

		return c.JSON(fiber.Map{
			"sale":  NewSaleResponse(sale),
			"items": itemResp,
		})
	}
}
