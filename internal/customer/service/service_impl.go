package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.Customer{}, domain.ErrInvalidPhone
	}

	email := strings.TrimSpace(req.Email)
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByPhone(ctx, tx, phone, 1)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrPhoneTaken
		}
		return s.repo.Insert(ctx, tx, &customer)
	})
	if err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer created", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || customerID == 0 {
		return domain.Customer{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}
