package models

import "time"

type Customer struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"size:200;not null"`
	Phone     *string `gorm:"size:50"`
	Email     *string `gorm:"size:200"`
	Address   *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
