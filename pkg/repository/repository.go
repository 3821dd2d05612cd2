// Package repository holds generic lookups for tables that need no hand
// written SQL. Every helper runs on the handle it is given, so callers pass
// the open transaction when there is one.
package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

// FindOne returns nil, nil when no row matches the non-zero fields of query.
func FindOne[T any](ctx context.Context, db *gorm.DB, query *T, opts ...option.QueryOption) (*T, error) {
	var row T
	err := scoped(ctx, db, query, opts).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func Find[T any](ctx context.Context, db *gorm.DB, query *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	err := scoped(ctx, db, query, opts).Find(&rows).Error
	return rows, err
}

func Insert[T any](ctx context.Context, db *gorm.DB, row *T) error {
	return db.WithContext(ctx).Create(row).Error
}

func scoped[T any](ctx context.Context, db *gorm.DB, query *T, opts []option.QueryOption) *gorm.DB {
	stmt := db.WithContext(ctx).Model(new(T)).Where(query)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
