package customers

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"salepoint-backend/internal/audit"
	"salepoint-backend/internal/auth"
	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"
	"salepoint-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
)

type CustomerResponse struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	Address   *string `json:"address"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type CreateCustomerRequest struct {
	Name    string  `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

type UpdateCustomerRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

func newCustomerResponse(cu models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        cu.ID,
		Name:      cu.Name,
		Phone:     cu.Phone,
		Email:     cu.Email,
		Address:   cu.Address,
		CreatedAt: cu.CreatedAt.Format(time.RFC3339),
		UpdatedAt: cu.UpdatedAt.Format(time.RFC3339),
	}
}

func validEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// GET /api/customers
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.Customer
		if err := database.DB.Order("name asc").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list customers")
		}

		resp := make([]CustomerResponse, 0, len(list))
		for _, cu := range list {
			resp = append(resp, newCustomerResponse(cu))
		}
		return c.JSON(resp)
	}
}

// POST /api/customers
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Customer name is required")
		}
		if body.Email != nil && !validEmail(*body.Email) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid email address")
		}

		cu := models.Customer{
			Name:    body.Name,
			Phone:   body.Phone,
			Email:   body.Email,
			Address: body.Address,
		}

		if err := database.DB.Create(&cu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create customer")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    cu.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Customer created: %s", cu.Name),
				After:       newCustomerResponse(cu),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(newCustomerResponse(cu))
	}
}

// PUT /api/customers/:id
// Partial update with the same tri-state rules as products: absent keeps,
// explicit null clears.
func UpdateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cu models.Customer
		if err := database.DB.First(&cu, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Customer not found")
		}

		var body UpdateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		before := newCustomerResponse(cu)

		if _, ok := raw["name"]; ok {
			if body.Name == nil {
				return fiber.NewError(fiber.StatusBadRequest, "Customer name cannot be null")
			}
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Customer name cannot be empty")
			}
			cu.Name = name
		}
		if _, ok := raw["phone"]; ok {
			cu.Phone = body.Phone
		}
		if _, ok := raw["email"]; ok {
			if body.Email != nil && !validEmail(*body.Email) {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid email address")
			}
			cu.Email = body.Email
		}
		if _, ok := raw["address"]; ok {
			cu.Address = body.Address
		}

		if err := database.DB.Save(&cu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update customer")
		}

		if userID, userName, err := auth.CurrentUser(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    cu.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Customer updated: %s", cu.Name),
				Before:      before,
				After:       newCustomerResponse(cu),
			})
		}

		return c.JSON(newCustomerResponse(cu))
	}
}

// GET /api/customers/:id/history
// Purchase history, newest first.
func CustomerHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var cu models.Customer
		if err := database.DB.First(&cu, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound,
				fmt.Sprintf("Customer with ID %s not found", id))
		}

		var saleRows []models.Sale
		if err := database.DB.
			Where("customer_id = ?", cu.ID).
			Order("transaction_date DESC, id DESC").
			Find(&saleRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load purchase history")
		}

		history := make([]sales.SaleResponse, 0, len(saleRows))
		for _, s := range saleRows {
			history = append(history, sales.NewSaleResponse(s))
		}

		return c.JSON(fiber.Map{
			"customer_id": cu.ID,
			"sales":       history,
		})
	}
}
