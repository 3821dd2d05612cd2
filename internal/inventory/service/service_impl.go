package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/inventory/domain"
	pkgdb "github.com/smallbiznis/storeline/pkg/db"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSKULength = 64

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
		log:   p.Log.Named("inventory.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.Discount.IsNegative() || req.Discount.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return domain.Product{}, domain.ErrInvalidDiscount
	}

	product := domain.Product{
		ID:        s.genID.Generate(),
		Name:      name,
		Discount:  req.Discount,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.InsertProduct(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) CreateVariant(ctx context.Context, req domain.CreateVariantRequest) (domain.Variant, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" || len(sku) > maxSKULength {
		return domain.Variant{}, domain.ErrInvalidSKU
	}
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		return domain.Variant{}, domain.ErrInvalidID
	}
	if req.Price.IsNegative() {
		return domain.Variant{}, domain.ErrInvalidPrice
	}

	variant := domain.Variant{
		SKU:       sku,
		ProductID: productID,
		Price:     req.Price.Round(2),
		UpdatedAt: s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.repo.FindProductByID(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}
		return s.repo.InsertVariant(ctx, tx, &variant)
	})
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Variant{}, domain.ErrSKUTaken
		}
		return domain.Variant{}, err
	}
	return variant, nil
}

// ReceiveBatch records a new lot for an existing SKU and refreshes the
// variant stock.
func (s *Service) ReceiveBatch(ctx context.Context, req domain.ReceiveBatchRequest) (domain.Batch, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return domain.Batch{}, domain.ErrInvalidSKU
	}
	if req.Quantity < 0 {
		return domain.Batch{}, domain.ErrInvalidQuantity
	}
	if req.ProductionDate != nil && req.ExpirationDate != nil && req.ExpirationDate.Before(*req.ProductionDate) {
		return domain.Batch{}, domain.ErrInvalidDateRange
	}

	batch := domain.Batch{
		ID:                s.genID.Generate(),
		SKU:               sku,
		ProductionDate:    utc(req.ProductionDate),
		ExpirationDate:    utc(req.ExpirationDate),
		AvailableQuantity: req.Quantity,
		CreatedAt:         s.clock.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variants, err := s.repo.FindVariantsBySKUs(ctx, tx, []string{sku})
		if err != nil {
			return err
		}
		if _, ok := variants[sku]; !ok {
			return domain.ErrVariantNotFound
		}
		if err := s.repo.InsertBatch(ctx, tx, &batch); err != nil {
			return err
		}
		_, err = s.repo.RecomputeVariantStock(ctx, tx, sku, batch.CreatedAt)
		return err
	})
	if err != nil {
		return domain.Batch{}, err
	}

	s.log.Info("batch received",
		zap.String("sku", sku),
		zap.String("batch_id", batch.ID.String()),
		zap.Int64("quantity", batch.AvailableQuantity),
	)
	return batch, nil
}

func (s *Service) AddStock(ctx context.Context, req domain.AddStockRequest) (domain.Batch, error) {
	batchID, err := snowflake.ParseString(strings.TrimSpace(req.BatchID))
	if err != nil {
		return domain.Batch{}, domain.ErrInvalidID
	}
	if req.Quantity <= 0 {
		return domain.Batch{}, domain.ErrInvalidQuantity
	}

	var out domain.Batch
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batches, err := s.repo.FindBatchesByIDs(ctx, tx, []snowflake.ID{batchID}, option.ForUpdate())
		if err != nil {
			return err
		}
		batch, ok := batches[batchID]
		if !ok {
			return domain.ErrBatchNotFound
		}

		updated, err := s.repo.IncrementBatch(ctx, tx, batchID, req.Quantity)
		if err != nil {
			return err
		}
		if !updated {
			return domain.ErrBatchNotFound
		}
		if _, err := s.repo.RecomputeVariantStock(ctx, tx, batch.SKU, s.clock.Now()); err != nil {
			return err
		}

		out = *batch
		out.AvailableQuantity += req.Quantity
		return nil
	})
	if err != nil {
		return domain.Batch{}, err
	}
	return out, nil
}

func (s *Service) GetVariant(ctx context.Context, sku string) (domain.VariantStock, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.VariantStock{}, domain.ErrInvalidSKU
	}

	variants, err := s.repo.FindVariantsBySKUs(ctx, s.db, []string{sku})
	if err != nil {
		return domain.VariantStock{}, err
	}
	variant, ok := variants[sku]
	if !ok {
		return domain.VariantStock{}, domain.ErrVariantNotFound
	}

	batches, err := s.repo.ListBatchesBySKU(ctx, s.db, sku)
	if err != nil {
		return domain.VariantStock{}, err
	}

	return domain.VariantStock{
		Variant:  variant.Variant,
		Discount: variant.Discount,
		Batches:  batches,
	}, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
