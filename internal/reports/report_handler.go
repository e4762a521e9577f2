package reports

import (
	"sort"
	"time"

	"salepoint-backend/internal/database"
	"salepoint-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func parseDateRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "from and to dates are required (YYYY-MM-DD)")
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid from date")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "Invalid to date")
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "to date must not be before from date")
	}
	return from, to, nil
}

func paidSalesBetween(from, to time.Time) ([]models.Sale, error) {
	var rows []models.Sale
	err := database.DB.
		Where("payment_status = ? AND transaction_date >= ? AND transaction_date < ?",
			models.PaymentStatusPaid, from, to.AddDate(0, 0, 1)).
		Find(&rows).Error
	return rows, err
}

type SalesReportRow struct {
	Period             string  `json:"period"`
	TotalSales         float64 `json:"total_sales"`
	TotalTransactions  int     `json:"total_transactions"`
	AverageTransaction float64 `json:"average_transaction"`
}

// GET /api/reports/sales?from=...&to=...&period=daily|monthly
// Paid sales grouped per calendar day or month, newest period first.
func SalesReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseDateRange(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily")
		var layout string
		switch period {
		case "daily":
			layout = "2006-01-02"
		case "monthly":
			layout = "2006-01"
		default:
			return fiber.NewError(fiber.StatusBadRequest, "period must be 'daily' or 'monthly'")
		}

		salesRows, err := paidSalesBetween(from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load sales")
		}

		type bucket struct {
			total float64
			count int
		}
		buckets := make(map[string]*bucket)
		for _, s := range salesRows {
			key := s.TransactionDate.Format(layout)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
			}
			b.total += s.TotalAmount
			b.count++
		}

		rows := make([]SalesReportRow, 0, len(buckets))
		for key, b := range buckets {
			rows = append(rows, SalesReportRow{
				Period:             key,
				TotalSales:         b.total,
				TotalTransactions:  b.count,
				AverageTransaction: b.total / float64(b.count),
			})
		}
		sort.Slice(rows, func(i, j int) bool {
			return rows[i].Period > rows[j].Period
		})

		return c.JSON(rows)
	}
}

type TopProductRow struct {
	ProductID         uint    `json:"product_id"`
	ProductName       string  `json:"product_name"`
	TotalQuantitySold float64 `json:"total_quantity_sold"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// GET /api/reports/top-products?limit=10
// Best sellers across paid sale items, ordered by revenue.
func TopProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		if limit <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
		}

		var rows []TopProductRow
		if err := database.DB.Model(&models.SaleItem{}).
			Select("sale_items.product_id AS product_id, products.name AS product_name, SUM(sale_items.quantity) AS total_quantity_sold, SUM(sale_items.subtotal) AS total_revenue").
			Joins("JOIN products ON products.id = sale_items.product_id").
			Joins("JOIN sales ON sales.id = sale_items.sale_id").
			Where("sales.payment_status = ?", models.PaymentStatusPaid).
			Group("sale_items.product_id, products.name").
			Order("total_revenue DESC").
			Limit(limit).
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build top products report")
		}

		if rows == nil {
			rows = []TopProductRow{}
		}
		return c.JSON(rows)
	}
}

type TopCustomerRow struct {
	CustomerID     uint    `json:"customer_id"`
	CustomerName   string  `json:"customer_name"`
	TotalPurchases int     `json:"total_purchases"`
	TotalSpent     float64 `json:"total_spent"`
}

// GET /api/reports/top-customers?limit=10
// Spend per customer over paid sales; walk-ins have no customer row and
// drop out through the inner join.
func TopCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 10)
		if limit <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be positive")
		}

		var rows []TopCustomerRow
		if err := database.DB.Model(&models.Sale{}).
			Select("customers.id AS customer_id, customers.name AS customer_name, COUNT(sales.id) AS total_purchases, SUM(sales.total_amount) AS total_spent").
			Joins("JOIN customers ON customers.id = sales.customer_id").
			Where("sales.payment_status = ?", models.PaymentStatusPaid).
			Group("customers.id, customers.name").
			Order("total_spent DESC").
			Limit(limit).
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build top customers report")
		}

		if rows == nil {
			rows = []TopCustomerRow{}
		}
		return c.JSON(rows)
	}
}

type PaymentMethodBreakdown struct {
	PaymentMethod    string  `json:"payment_method"`
	TotalAmount      float64 `json:"total_amount"`
	TransactionCount int     `json:"transaction_count"`
}

type RevenueSummaryResponse struct {
	TotalRevenue           float64                  `json:"total_revenue"`
	TotalTransactions      int                      `json:"total_transactions"`
	AverageTransaction     float64                  `json:"average_transaction"`
	RevenueByPaymentMethod []PaymentMethodBreakdown `json:"revenue_by_payment_method"`
	PeriodStart            string                   `json:"period_start"`
	PeriodEnd              string                   `json:"period_end"`
}

// GET /api/reports/revenue-summary?from=...&to=...
func RevenueSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, to, err := parseDateRange(c)
		if err != nil {
			return err
		}

		salesRows, err := paidSalesBetween(from, to)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load sales")
		}

		totalRevenue := 0.0
		byMethod := make(map[models.PaymentMethod]*PaymentMethodBreakdown)
		for _, s := range salesRows {
			totalRevenue += s.TotalAmount
			b, ok := byMethod[s.PaymentMethod]
			if !ok {
				b = &PaymentMethodBreakdown{PaymentMethod: string(s.PaymentMethod)}
				byMethod[s.PaymentMethod] = b
			}
			b.TotalAmount += s.TotalAmount
			b.TransactionCount++
		}

		breakdown := make([]PaymentMethodBreakdown, 0, len(byMethod))
		for _, b := range byMethod {
			breakdown = append(breakdown, *b)
		}
		sort.Slice(breakdown, func(i, j int) bool {
			if breakdown[i].TotalAmount != breakdown[j].TotalAmount {
				return breakdown[i].TotalAmount > breakdown[j].TotalAmount
			}
			return breakdown[i].PaymentMethod < breakdown[j].PaymentMethod
		})

		avg := 0.0
		if len(salesRows) > 0 {
			avg = totalRevenue / float64(len(salesRows))
		}

		return c.JSON(RevenueSummaryResponse{
			TotalRevenue:           totalRevenue,
			TotalTransactions:      len(salesRows),
			AverageTransaction:     avg,
			RevenueByPaymentMethod: breakdown,
			PeriodStart:            from.Format("2006-01-02"),
			PeriodEnd:              to.Format("2006-01-02"),
		})
	}
}
