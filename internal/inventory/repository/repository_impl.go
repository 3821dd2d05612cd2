package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/inventory/domain"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, discount, created_at) VALUES (?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Discount,
		product.CreatedAt,
	).Error
}

func (r *repo) FindProductByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, discount, created_at FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) InsertVariant(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO variants (sku, product_id, price, stock, updated_at) VALUES (?, ?, ?, ?, ?)`,
		variant.SKU,
		variant.ProductID,
		variant.Price,
		variant.Stock,
		variant.UpdatedAt,
	).Error
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, batch *domain.Batch) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO batches (id, sku, production_date, expiration_date, available_quantity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		batch.ID,
		batch.SKU,
		batch.ProductionDate,
		batch.ExpirationDate,
		batch.AvailableQuantity,
		batch.CreatedAt,
	).Error
}

func (r *repo) FindVariantsBySKUs(ctx context.Context, db *gorm.DB, skus []string) (map[string]*domain.PricedVariant, error) {
	out := make(map[string]*domain.PricedVariant, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	var items []*domain.PricedVariant
	err := db.WithContext(ctx).Raw(
		`SELECT v.sku, v.product_id, v.price, v.stock, v.updated_at,
		        COALESCE(p.discount, 0) AS discount
		 FROM variants v
		 LEFT JOIN products p ON p.id = v.product_id
		 WHERE v.sku IN ?`,
		skus,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.SKU] = item
	}
	return out, nil
}

func (r *repo) FindBatchesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, opts ...option.QueryOption) (map[snowflake.ID]*domain.Batch, error) {
	out := make(map[snowflake.ID]*domain.Batch, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	stmt := db.WithContext(ctx).Model(&domain.Batch{}).Where("id IN ?", ids)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var items []*domain.Batch
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *repo) ListBatchesBySKU(ctx context.Context, db *gorm.DB, sku string) ([]*domain.Batch, error) {
	var items []*domain.Batch
	err := db.WithContext(ctx).
		Model(&domain.Batch{}).
		Where("sku = ?", sku).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DecrementBatch(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE batches SET available_quantity = available_quantity - ?
		 WHERE id = ? AND available_quantity >= ?`,
		qty,
		id,
		qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) IncrementBatch(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE batches SET available_quantity = available_quantity + ? WHERE id = ?`,
		qty,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) RecomputeVariantStock(ctx context.Context, db *gorm.DB, sku string, now time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(available_quantity), 0) FROM batches WHERE sku = ?`,
		sku,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}

	err = db.WithContext(ctx).Exec(
		`UPDATE variants SET stock = ?, updated_at = ? WHERE sku = ?`,
		total,
		now.UTC(),
		sku,
	).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
