package models

import "time"

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodEWallet      PaymentMethod = "e_wallet"
	PaymentMethodOther        PaymentMethod = "other"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Sale: one point-of-sale transaction. CustomerID is NULL for walk-ins.
// A sale owns its SaleItems and neither is ever updated after creation.
type Sale struct {
	ID              uint  `gorm:"primaryKey"`
	CustomerID      *uint `gorm:"index"`
	Customer        *Customer
	TotalAmount     float64       `gorm:"type:decimal(10,2);not null"`
	PaymentMethod   PaymentMethod `gorm:"size:20;not null"`
	PaymentStatus   PaymentStatus `gorm:"size:20;not null;default:paid"`
	TransactionDate time.Time     `gorm:"index;not null"`
	Notes           *string       `gorm:"type:text"`
	Items           []SaleItem    `gorm:"foreignKey:SaleID"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SaleItem: one line of a sale. Lines stay separate even when the same
// product appears on several of them.
type SaleItem struct {
	ID        uint `gorm:"primaryKey"`
	SaleID    uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  float64 `gorm:"type:decimal(10,2);not null"`
	UnitPrice float64 `gorm:"type:decimal(10,2);not null"`
	Subtotal  float64 `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}
