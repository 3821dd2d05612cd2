package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// FindByPhone returns at most limit customers registered with phone.
	FindByPhone(ctx context.Context, db *gorm.DB, phone string, limit int) ([]*Customer, error)
	// AdjustPoints adds delta to the balance. It reports false when the
	// row is missing or the balance would drop below zero.
	AdjustPoints(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64, now time.Time) (bool, error)
}
