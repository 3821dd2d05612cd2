package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Phone     string       `gorm:"index" json:"phone"`
	Email     string       `json:"email,omitempty"`
	Points    int64        `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
