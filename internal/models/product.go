package models

import "time"

// Product: catalog item, either a physical good or a service.
// Services (IsService=true) always keep the stock columns NULL.
type Product struct {
	ID                uint    `gorm:"primaryKey"`
	Name              string  `gorm:"size:200;not null"`
	Description       *string `gorm:"type:text"`
	Price             float64 `gorm:"type:decimal(10,2);not null"`
	StockQuantity     *int    // NULL for services
	IsService         bool    `gorm:"not null;default:false"`
	LowStockThreshold *int    // optional restock threshold
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
