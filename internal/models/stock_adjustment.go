package models

import "time"

type AdjustmentType string

const (
	AdjustmentTypeIncrease   AdjustmentType = "increase"
	AdjustmentTypeDecrease   AdjustmentType = "decrease"
	AdjustmentTypeCorrection AdjustmentType = "correction"
)

// StockAdjustment: append-only audit record of a manual stock change.
// QuantityChange is a delta for increase/decrease and an absolute value
// for correction.
type StockAdjustment struct {
	ID             uint `gorm:"primaryKey"`
	ProductID      uint `gorm:"index;not null"`
	Product        Product
	AdjustmentType AdjustmentType `gorm:"size:20;not null"`
	QuantityChange int            `gorm:"not null"`
	Reason         string         `gorm:"size:500;not null"`
	AdjustedBy     string         `gorm:"size:100;not null"`
	AdjustmentDate time.Time      `gorm:"index;not null"`
	CreatedAt      time.Time
}
