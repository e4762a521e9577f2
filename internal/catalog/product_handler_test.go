package catalog

import (
	"fmt"
	"net/http"
	"testing"

	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"
	"salepoint-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *fiber.App {
	app := fiber.New()
	app.Post("/api/products", CreateProductHandler())
	app.Get("/api/products", ListProductsHandler())
	app.Put("/api/products/:id", UpdateProductHandler())
	app.Delete("/api/products/:id", DeleteProductHandler())
	return app
}

func seedProduct(t *testing.T, app *fiber.App, body fiber.Map) ProductResponse {
	t.Helper()
	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/products", body), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out ProductResponse
	testutil.DecodeBody(t, resp, &out)
	return out
}

func TestCreateProduct(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	out := seedProduct(t, app, fiber.Map{
		"name":                "Widget",
		"description":         "a widget",
		"price":               25.99,
		"stock_quantity":      100,
		"is_service":          false,
		"low_stock_threshold": 10,
	})

	assert.NotZero(t, out.ID)
	assert.Equal(t, "Widget", out.Name)
	require.NotNil(t, out.Description)
	assert.Equal(t, "a widget", *out.Description)
	assert.InDelta(t, 25.99, out.Price, 0.001)
	require.NotNil(t, out.StockQuantity)
	assert.Equal(t, 100, *out.StockQuantity)
	require.NotNil(t, out.LowStockThreshold)
	assert.Equal(t, 10, *out.LowStockThreshold)
}

func TestCreateProduct_ServiceForcesNullStock(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	out := seedProduct(t, app, fiber.Map{
		"name":                "Consulting",
		"price":               150.0,
		"is_service":          true,
		"stock_quantity":      50, // ignored for services
		"low_stock_threshold": 5,
	})

	assert.True(t, out.IsService)
	assert.Nil(t, out.StockQuantity)
	assert.Nil(t, out.LowStockThreshold)
}

func TestCreateProduct_Validation(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/products", fiber.Map{
		"name": "", "price": 10.0,
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/products", fiber.Map{
		"name": "Freebie", "price": 0,
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(testutil.JSONRequest(t, http.MethodPost, "/api/products", fiber.Map{
		"name": "Negative", "price": 5.0, "stock_quantity": -1,
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProduct_PartialUpdate(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedProduct(t, app, fiber.Map{
		"name":                "Widget",
		"description":         "a widget",
		"price":               25.99,
		"stock_quantity":      100,
		"low_stock_threshold": 10,
	})

	// only price supplied: everything else keeps its value
	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPut,
		fmt.Sprintf("/api/products/%d", created.ID), fiber.Map{"price": 29.99}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ProductResponse
	testutil.DecodeBody(t, resp, &out)
	assert.InDelta(t, 29.99, out.Price, 0.001)
	assert.Equal(t, "Widget", out.Name)
	require.NotNil(t, out.Description)
	assert.Equal(t, "a widget", *out.Description)
	require.NotNil(t, out.StockQuantity)
	assert.Equal(t, 100, *out.StockQuantity)
}

func TestUpdateProduct_ExplicitNullClearsField(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedProduct(t, app, fiber.Map{
		"name":                "Widget",
		"description":         "a widget",
		"price":               25.99,
		"stock_quantity":      100,
		"low_stock_threshold": 10,
	})

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPut,
		fmt.Sprintf("/api/products/%d", created.ID), map[string]any{
			"description":         nil,
			"low_stock_threshold": nil,
		}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ProductResponse
	testutil.DecodeBody(t, resp, &out)
	assert.Nil(t, out.Description)
	assert.Nil(t, out.LowStockThreshold)
	// untouched fields survive
	require.NotNil(t, out.StockQuantity)
	assert.Equal(t, 100, *out.StockQuantity)
}

func TestUpdateProduct_SwitchToServiceClearsStock(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedProduct(t, app, fiber.Map{
		"name":                "Widget",
		"price":               25.99,
		"stock_quantity":      100,
		"low_stock_threshold": 10,
	})

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPut,
		fmt.Sprintf("/api/products/%d", created.ID), fiber.Map{"is_service": true}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out ProductResponse
	testutil.DecodeBody(t, resp, &out)
	assert.True(t, out.IsService)
	assert.Nil(t, out.StockQuantity)
	assert.Nil(t, out.LowStockThreshold)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodPut, "/api/products/999", fiber.Map{"price": 1.0}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProduct(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedProduct(t, app, fiber.Map{"name": "Widget", "price": 9.99, "stock_quantity": 5})

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodDelete,
		fmt.Sprintf("/api/products/%d", created.ID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var n int64
	require.NoError(t, database.DB.Model(&models.Product{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)
}

func TestDeleteProduct_BlockedBySaleItem(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedProduct(t, app, fiber.Map{"name": "Widget", "price": 9.99, "stock_quantity": 5})

	sale := models.Sale{
		TotalAmount:   9.99,
		PaymentMethod: models.PaymentMethodCash,
		PaymentStatus: models.PaymentStatusPaid,
	}
	require.NoError(t, database.DB.Create(&sale).Error)
	item := models.SaleItem{SaleID: sale.ID, ProductID: created.ID, Quantity: 1, UnitPrice: 9.99, Subtotal: 9.99}
	require.NoError(t, database.DB.Create(&item).Error)

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodDelete,
		fmt.Sprintf("/api/products/%d", created.ID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, testutil.BodyString(t, resp), "cannot be deleted")

	// product is still queryable
	var p models.Product
	assert.NoError(t, database.DB.First(&p, "id = ?", created.ID).Error)
}

func TestDeleteProduct_BlockedByStockAdjustment(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	created := seedProduct(t, app, fiber.Map{"name": "Widget", "price": 9.99, "stock_quantity": 5})

	adj := models.StockAdjustment{
		ProductID:      created.ID,
		AdjustmentType: models.AdjustmentTypeIncrease,
		QuantityChange: 5,
		Reason:         "restock",
		AdjustedBy:     "ada",
	}
	require.NoError(t, database.DB.Create(&adj).Error)

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodDelete,
		fmt.Sprintf("/api/products/%d", created.ID), nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListProducts_SortedByName(t *testing.T) {
	testutil.SetupDB(t)
	app := newTestApp()

	seedProduct(t, app, fiber.Map{"name": "Zebra", "price": 1.0})
	seedProduct(t, app, fiber.Map{"name": "Apple", "price": 1.0})

	resp, err := app.Test(testutil.JSONRequest(t, http.MethodGet, "/api/products", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []ProductResponse
	testutil.DecodeBody(t, resp, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "Apple", out[0].Name)
	assert.Equal(t, "Zebra", out[1].Name)
}
