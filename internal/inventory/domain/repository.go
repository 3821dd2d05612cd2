package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	InsertVariant(ctx context.Context, db *gorm.DB, variant *Variant) error
	InsertBatch(ctx context.Context, db *gorm.DB, batch *Batch) error

	// FindVariantsBySKUs returns the variants found, keyed by SKU.
	FindVariantsBySKUs(ctx context.Context, db *gorm.DB, skus []string) (map[string]*PricedVariant, error)
	// FindBatchesByIDs returns the batches found, keyed by id.
	FindBatchesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, opts ...option.QueryOption) (map[snowflake.ID]*Batch, error)
	ListBatchesBySKU(ctx context.Context, db *gorm.DB, sku string) ([]*Batch, error)

	// DecrementBatch subtracts qty only when the batch holds at least qty.
	// It reports false when no row was changed.
	DecrementBatch(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error)
	IncrementBatch(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error)
	// RecomputeVariantStock persists the sum of the SKU's batch quantities
	// as the variant stock, stamped at now, and returns it.
	RecomputeVariantStock(ctx context.Context, db *gorm.DB, sku string, now time.Time) (int64, error)
}
