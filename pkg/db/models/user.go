package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
)

// User is a storefront account.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:text;primaryKey"`
	Email        string         `gorm:"column:email;type:text;not null;uniqueIndex:idx_users_email"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	FirstName    string         `gorm:"column:first_name;not null"`
	LastName     string         `gorm:"column:last_name;not null"`
	Phone        *string        `gorm:"column:phone"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:user"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
