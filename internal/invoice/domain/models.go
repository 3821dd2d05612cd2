// Package domain contains the invoice model, its delivery state machine and
// the engine contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status is the payment side of an invoice.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// DeliveryStatus is the fulfilment side of an invoice.
type DeliveryStatus string

const (
	DeliveryNotDelivered DeliveryStatus = "NOT_DELIVERED"
	DeliveryPending      DeliveryStatus = "PENDING"
	DeliveryInTransit    DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered    DeliveryStatus = "DELIVERED"
)

type OrderType string

const (
	OrderTypeOnline  OrderType = "ONLINE"
	OrderTypeOffline OrderType = "OFFLINE"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeOnline || t == OrderTypeOffline
}

type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard:
		return true
	default:
		return false
	}
}

type Invoice struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	CashierID       *snowflake.ID   `gorm:"index" json:"cashier_id,omitempty"`
	CustomerID      *snowflake.ID   `gorm:"index" json:"customer_id,omitempty"`
	Discount        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(16);not null" json:"payment_method"`
	Status          Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	DeliveryAddress string          `gorm:"type:varchar(500)" json:"delivery_address"`
	DeliveryStatus  DeliveryStatus  `gorm:"type:varchar(16);not null;index" json:"delivery_status"`
	OrderType       OrderType       `gorm:"type:varchar(16);not null" json:"order_type"`
	IsAnonymous     bool            `gorm:"not null;default:false" json:"is_anonymous"`
	Feedback        *string         `gorm:"type:varchar(1000)" json:"feedback,omitempty"`
	Star            *int            `json:"star,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`

	Details []InvoiceDetail `gorm:"-" json:"details"`
}

func (Invoice) TableName() string { return "invoices" }

// InvoiceDetail is an immutable invoice line.
type InvoiceDetail struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID         snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	SKU               string          `gorm:"type:varchar(64);not null" json:"sku"`
	BatchID           snowflake.ID    `gorm:"not null" json:"batch_id"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	LineTotal         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
	IsPointRedemption bool            `gorm:"not null;default:false" json:"is_point_redemption"`
	PointRedemptionID *snowflake.ID   `json:"point_redemption_id,omitempty"`
	CreatedAt         time.Time       `gorm:"not null" json:"created_at"`
}

func (InvoiceDetail) TableName() string { return "invoice_details" }
