package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/employee/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{db: p.DB, repo: p.Repo}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Employee, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Employee{}, err
	}
	if item == nil {
		return domain.Employee{}, domain.ErrNotFound
	}
	return *item, nil
}
