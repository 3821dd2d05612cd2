package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Discount  decimal.Decimal `gorm:"type:numeric(5,4);not null;default:0" json:"discount"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (Product) TableName() string { return "products" }

// Variant is a purchasable SKU. Stock mirrors the sum of its batches.
type Variant struct {
	SKU       string          `gorm:"primaryKey;type:varchar(64)" json:"sku"`
	ProductID snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	Stock     int64           `gorm:"not null;default:0" json:"stock"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

func (Variant) TableName() string { return "variants" }

// PricedVariant is a variant joined with the discount of its product.
type PricedVariant struct {
	Variant
	Discount decimal.Decimal `json:"discount"`
}

type Batch struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	SKU               string       `gorm:"type:varchar(64);not null;index" json:"sku"`
	ProductionDate    *time.Time   `json:"production_date,omitempty"`
	ExpirationDate    *time.Time   `json:"expiration_date,omitempty"`
	AvailableQuantity int64        `gorm:"not null;default:0" json:"available_quantity"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
}

func (Batch) TableName() string { return "batches" }

// Expired reports whether the batch expired strictly before now.
func (b Batch) Expired(now time.Time) bool {
	return b.ExpirationDate != nil && b.ExpirationDate.Before(now)
}
