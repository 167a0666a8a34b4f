package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
)

// Order is a placed order. Only the payment summary is stored.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:text;primaryKey"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:text"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:pending"`
	ShipName        string              `gorm:"column:ship_name;not null"`
	ShipAddress     string              `gorm:"column:ship_address;not null"`
	ShipCity        string              `gorm:"column:ship_city;not null"`
	ShipState       string              `gorm:"column:ship_state;not null;default:''"`
	ShipZipCode     string              `gorm:"column:ship_zip_code;not null"`
	ShipCountry     string              `gorm:"column:ship_country;not null"`
	ShipPhone       string              `gorm:"column:ship_phone;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentCardName string              `gorm:"column:payment_card_name;not null"`
	PaymentLastFour string              `gorm:"column:payment_last_four;not null"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Events          []OrderEvent        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots a product at placement time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:text;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:text;not null"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:text;not null"`
	Name      string          `gorm:"column:name;not null"`
	Image     string          `gorm:"column:image;not null;default:''"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	Position  int             `gorm:"column:position;not null;default:0"`
}

// OrderEvent is one entry of an order's tracking timeline.
type OrderEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:text;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:text;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Location  string            `gorm:"column:location;not null;default:''"`
	CreatedAt time.Time         `gorm:"column:created_at"`
}
