package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the authoritative catalogue listing. Price and Stock are read
// by order placement; clients never supply either.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:text;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description string          `gorm:"column:description;not null;default:''"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Image       string          `gorm:"column:image;not null;default:''"`
	CategoryID  *uuid.UUID      `gorm:"column:category_id;type:text"`
	Category    *Category       `gorm:"foreignKey:CategoryID"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Rating      *float64        `gorm:"column:rating;type:numeric(3,2)"`
	Reviews     int             `gorm:"column:reviews;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
