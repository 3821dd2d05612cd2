package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, name, phone, email, points, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.Name,
		customer.Phone,
		customer.Email,
		customer.Points,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone, email, points, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) FindByPhone(ctx context.Context, db *gorm.DB, phone string, limit int) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("phone = ?", strings.TrimSpace(phone)).
		Order("id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) AdjustPoints(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET points = points + ?, updated_at = ?
		 WHERE id = ? AND points + ? >= 0`,
		delta,
		now.UTC(),
		id,
		delta,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
