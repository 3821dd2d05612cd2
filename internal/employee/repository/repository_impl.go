package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/employee/domain"
	"github.com/smallbiznis/storeline/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Employee, error) {
	if id == 0 {
		return nil, nil
	}
	return repository.FindOne(ctx, db, &domain.Employee{ID: id})
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return repository.Insert(ctx, db, employee)
}
