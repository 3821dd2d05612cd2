package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, item *PointRedemption) error
	Update(ctx context.Context, db *gorm.DB, item *PointRedemption) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PointRedemption, error)
	// FindByIDs returns the redemptions found, keyed by id.
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, opts ...option.QueryOption) (map[snowflake.ID]*PointRedemption, error)
	ListActive(ctx context.Context, db *gorm.DB, now time.Time) ([]*PointRedemption, error)
	// Decrement subtracts qty only when at least qty remains.
	Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64, now time.Time) (bool, error)
}
