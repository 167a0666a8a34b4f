package models

import "github.com/google/uuid"

// Category groups products for browsing.
type Category struct {
	ID          uuid.UUID `gorm:"column:id;type:text;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:idx_categories_slug"`
	Description string    `gorm:"column:description;not null;default:''"`
}
