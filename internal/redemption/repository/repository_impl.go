package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, item *domain.PointRedemption) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO point_redemptions (id, sku, batch_id, name, points_required, available_quantity,
		 start_date, end_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.SKU,
		item.BatchID,
		item.Name,
		item.PointsRequired,
		item.AvailableQuantity,
		item.StartDate,
		item.EndDate,
		item.Status,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, item *domain.PointRedemption) error {
	if item == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE point_redemptions
		 SET name = ?, points_required = ?, available_quantity = ?, start_date = ?, end_date = ?,
		     status = ?, updated_at = ?
		 WHERE id = ?`,
		item.Name,
		item.PointsRequired,
		item.AvailableQuantity,
		item.StartDate,
		item.EndDate,
		item.Status,
		item.UpdatedAt,
		item.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM point_redemptions WHERE id = ?`, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PointRedemption, error) {
	items, err := r.FindByIDs(ctx, db, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	return items[id], nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID, opts ...option.QueryOption) (map[snowflake.ID]*domain.PointRedemption, error) {
	out := make(map[snowflake.ID]*domain.PointRedemption, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	stmt := db.WithContext(ctx).Model(&domain.PointRedemption{}).Where("id IN ?", ids)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var items []*domain.PointRedemption
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, now time.Time) ([]*domain.PointRedemption, error) {
	var items []*domain.PointRedemption
	err := db.WithContext(ctx).
		Model(&domain.PointRedemption{}).
		Where("status = ?", domain.StatusActive).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Where("available_quantity > 0").
		Order("end_date asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE point_redemptions
		 SET available_quantity = available_quantity - ?, updated_at = ?
		 WHERE id = ? AND available_quantity >= ?`,
		qty,
		now.UTC(),
		id,
		qty,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
