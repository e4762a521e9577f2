package customers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"
	"salepoint-backend/internal/sales"
	"salepoint-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/customers", CreateCustomerHandler())
	app.Get("/api/customers", ListCustomersHandler())
	app.Put("/api/customers/:id", UpdateCustomerHandler())
	app.Get("/api/customers/:id/history", CustomerHistoryHandler())
	return app
}

func seedCustomer(t *testing.T, app *fiber.App, body fiber.Map) CustomerResponse {
	t.Helper()
	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/customers", body), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out CustomerResponse
	testutil.DecodeBody(t, resp, &out)
	return out
}

func TestCreateCustomer(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	out := seedCustomer(t, app, fiber.Map{
		"name":    "Ada Lovelace",
		"phone":   "+1-555-0100",
		"email":   "ada@example.com",
		"address": "12 Analytical Way",
	})

	assert.NotZero(t, out.ID)
	assert.Equal(t, "Ada Lovelace", out.Name)
	require.NotNil(t, out.Email)
	assert.Equal(t, "ada@example.com", *out.Email)
}

func TestCreateCustomer_Validation(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/customers", fiber.Map{
		"name": "",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/customers", fiber.Map{
		"name":  "Bad Mail",
		"email": "not-an-address",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateCustomer_PartialAndNull(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedCustomer(t, app, fiber.Map{
		"name":  "Ada Lovelace",
		"phone": "+1-555-0100",
		"email": "ada@example.com",
	})

	// name untouched, phone cleared, email replaced
	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPut,
		fmt.Sprintf("/api/customers/%d", created.ID), map[string]any{
			"phone": nil,
			"email": "countess@example.com",
		}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out CustomerResponse
	testutil.DecodeBody(t, resp, &out)
	assert.Equal(t, "Ada Lovelace", out.Name)
	assert.Nil(t, out.Phone)
	require.NotNil(t, out.Email)
	assert.Equal(t, "countess@example.com", *out.Email)
}

func TestUpdateCustomer_NotFound(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPut, "/api/customers/999", fiber.Map{
		"name": "Ghost",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListCustomers_SortedByName(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	seedCustomer(t, app, fiber.Map{"name": "Zeno"})
	seedCustomer(t, app, fiber.Map{"name": "Ada"})

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodGet, "/api/customers", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []CustomerResponse
	testutil.DecodeBody(t, resp, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "Ada", out[0].Name)
	assert.Equal(t, "Zeno", out[1].Name)
}

func TestCustomerHistory(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedCustomer(t, app, fiber.Map{"name": "Ada"})

	older := models.Sale{
		CustomerID:      &created.ID,
		TotalAmount:     10,
		PaymentMethod:   models.PaymentMethodCash,
		PaymentStatus:   models.PaymentStatusPaid,
		TransactionDate: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	}
	newer := models.Sale{
		CustomerID:      &created.ID,
		TotalAmount:     20,
		PaymentMethod:   models.PaymentMethodCash,
		PaymentStatus:   models.PaymentStatusPaid,
		TransactionDate: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, database.DB.Create(&older).Error)
	require.NoError(t, database.DB.Create(&newer).Error)

	// a sale for another customer must not leak in
	other := models.Sale{
		TotalAmount:   99,
		PaymentMethod: models.PaymentMethodCash,
		PaymentStatus: models.PaymentStatusPaid,
	}
	require.NoError(t, database.DB.Create(&other).Error)

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodGet,
		fmt.Sprintf("/api/customers/%d/history", created.ID), nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		CustomerID uint                 `json:"customer_id"`
		Sales      []sales.SaleResponse `json:"sales"`
	}
	testutil.DecodeBody(t, resp, &out)
	assert.Equal(t, created.ID, out.CustomerID)
	require.Len(t, out.Sales, 2)
	assert.InDelta(t, 20.0, out.Sales[0].TotalAmount, 0.001)
	assert.InDelta(t, 10.0, out.Sales[1].TotalAmount, 0.001)
}

func TestCustomerHistory_NotFound(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodGet, "/api/customers/999/history", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, testutil.BodyString(t, resp), "Customer with ID 999 not found")
}
