package main

import (
	"log"
	"strings"

	"salepoint-backend/internal/audit"
	"salepoint-backend/internal/auth"
	"salepoint-backend/internal/catalog"
	"salepoint-backend/internal/config"
	"salepoint-backend/internal/customers"
	"salepoint-backend/internal/database"
	"salepoint-backend/internal/inventory"
	"salepoint-backend/internal/models"
	"salepoint-backend/internal/reports"
	"salepoint-backend/internal/sales"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Catalog
	protected.Post("/products", catalog.CreateProductHandler())
	protected.Get("/products", catalog.ListProductsHandler())
	protected.Put("/products/:id", catalog.UpdateProductHandler())
	protected.Delete("/products/:id", auth.RequireRole(models.RoleAdmin), catalog.DeleteProductHandler())

	// Customers
	protected.Post("/customers", customers.CreateCustomerHandler())
	protected.Get("/customers", customers.ListCustomersHandler())
	protected.Put("/customers/:id", customers.UpdateCustomerHandler())
	protected.Get("/customers/:id/history", customers.CustomerHistoryHandler())

	// Sales
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Get("/sales/:id", sales.GetSaleDetailsHandler())

	// Inventory
	protected.Post("/stock-adjustments", inventory.CreateStockAdjustmentHandler())
	protected.Get("/stock-adjustments", inventory.ListStockAdjustmentsHandler())
	protected.Get("/stock-adjustments/low-stock", inventory.LowStockHandler())

	// Reports
	protected.Get("/reports/sales", reports.SalesReportHandler())
	protected.Get("/reports/top-products", reports.TopProductsHandler())
	protected.Get("/reports/top-customers", reports.TopCustomersHandler())
	protected.Get("/reports/revenue-summary", reports.RevenueSummaryHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
