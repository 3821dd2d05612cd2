package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActorType string

const (
	ActorTypeAnonymous ActorType = "anonymous"
	ActorTypeCustomer  ActorType = "customer"
	ActorTypeStaff     ActorType = "staff"
	ActorTypeManager   ActorType = "manager"
	ActorTypeSystem    ActorType = "system"
)

const (
	ActionInvoiceCreated         = "invoice.created"
	ActionInvoiceUpdated         = "invoice.updated"
	ActionInvoiceCancelled       = "invoice.cancelled"
	ActionInvoiceFeedback        = "invoice.feedback_provided"
	ActionInvoiceDeliveryStatus  = "invoice.delivery_status_changed"
	ActionInvoiceAddressChanged  = "invoice.delivery_address_changed"
	ActionPointRedemptionCreated = "point_redemption.created"
	ActionBatchReceived          = "batch.received"
)

const TargetTypeInvoice = "invoice"

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:varchar(32);not null" json:"actor_type"`
	ActorID    *string           `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(32);not null" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64);index" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	IPAddress  *string           `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
