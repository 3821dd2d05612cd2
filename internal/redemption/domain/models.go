package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// PointRedemption is a time-bounded offer exchanging points for units of one
// SKU batch.
type PointRedemption struct {
	ID                snowflake.ID `gorm:"primaryKey" json:"id"`
	SKU               string       `gorm:"type:varchar(64);not null;index" json:"sku"`
	BatchID           snowflake.ID `gorm:"not null;index" json:"batch_id"`
	Name              string       `gorm:"not null" json:"name"`
	PointsRequired    int64        `gorm:"not null" json:"points_required"`
	AvailableQuantity int64        `gorm:"not null;default:0" json:"available_quantity"`
	StartDate         time.Time    `gorm:"not null" json:"start_date"`
	EndDate           time.Time    `gorm:"not null" json:"end_date"`
	Status            Status       `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (PointRedemption) TableName() string { return "point_redemptions" }

// RedeemableAt reports whether the offer is active and now falls inside
// [StartDate, EndDate].
func (r PointRedemption) RedeemableAt(now time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	return !now.Before(r.StartDate) && !now.After(r.EndDate)
}
