package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// List returns newest first, fetching one row past the limit so the caller
// can tell whether another page exists.
func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})
	for _, opt := range listOptions(filter) {
		stmt = opt.Apply(stmt)
	}

	var logs []*domain.AuditLog
	if err := stmt.Order("created_at desc, id desc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func listOptions(filter domain.ListFilter) []option.QueryOption {
	var opts []option.QueryOption
	eq := func(field, value string) {
		if value = strings.TrimSpace(value); value != "" {
			opts = append(opts, option.ApplyOperator(option.Condition{Field: field, Value: value}))
		}
	}
	eq("action", filter.Action)
	eq("target_type", filter.TargetType)
	eq("target_id", filter.TargetID)
	eq("actor_type", filter.ActorType)

	if filter.StartAt != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.GTE, Value: filter.StartAt.UTC()}))
	}
	if filter.EndAt != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.LTE, Value: filter.EndAt.UTC()}))
	}
	if c := filter.Cursor; c != nil {
		opts = append(opts, option.Before(c.CreatedAt, int64(c.ID)))
	}
	if filter.Limit > 0 {
		opts = append(opts, option.WithLimit(filter.Limit+1))
	}
	return opts
}
