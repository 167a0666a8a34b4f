package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is one customer's rating of a product. A user reviews a product at
// most once.
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:text;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:text;not null"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	UserID    uuid.UUID `gorm:"column:user_id;type:text;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   string    `gorm:"column:comment;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
