package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/clock"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	"github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Inventory inventorydomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	inventory inventorydomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("redemption.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		inventory: p.Inventory,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.PointRedemption, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return domain.PointRedemption{}, inventorydomain.ErrInvalidSKU
	}
	batchID, err := snowflake.ParseString(strings.TrimSpace(req.BatchID))
	if err != nil {
		return domain.PointRedemption{}, domain.ErrInvalidID
	}
	status := req.Status
	if status == "" {
		status = domain.StatusActive
	}

	now := s.clock.Now()
	item := domain.PointRedemption{
		ID:                s.genID.Generate(),
		SKU:               sku,
		BatchID:           batchID,
		Name:              strings.TrimSpace(req.Name),
		PointsRequired:    req.PointsRequired,
		AvailableQuantity: req.AvailableQuantity,
		StartDate:         req.StartDate.UTC(),
		EndDate:           req.EndDate.UTC(),
		Status:            status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := validate(item); err != nil {
		return domain.PointRedemption{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkBatch(ctx, tx, item); err != nil {
			return err
		}
		if err := s.moveStock(ctx, tx, item, item.AvailableQuantity, now); err != nil {
			return err
		}
		return s.repo.Insert(ctx, tx, &item)
	})
	if err != nil {
		return domain.PointRedemption{}, err
	}

	s.log.Info("point redemption created",
		zap.String("redemption_id", item.ID.String()),
		zap.String("sku", item.SKU),
	)
	return item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (domain.PointRedemption, error) {
	redemptionID, err := parseID(id)
	if err != nil {
		return domain.PointRedemption{}, err
	}

	var out domain.PointRedemption
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.repo.FindByIDs(ctx, tx, []snowflake.ID{redemptionID}, option.ForUpdate())
		if err != nil {
			return err
		}
		item, ok := items[redemptionID]
		if !ok {
			return domain.ErrNotFound
		}
		reserved := item.AvailableQuantity

		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.PointsRequired != nil {
			item.PointsRequired = *req.PointsRequired
		}
		if req.AvailableQuantity != nil {
			item.AvailableQuantity = *req.AvailableQuantity
		}
		if req.StartDate != nil {
			item.StartDate = req.StartDate.UTC()
		}
		if req.EndDate != nil {
			item.EndDate = req.EndDate.UTC()
		}
		if req.Status != nil {
			item.Status = *req.Status
		}
		if err := validate(*item); err != nil {
			return err
		}

		now := s.clock.Now()
		if delta := item.AvailableQuantity - reserved; delta != 0 {
			if err := s.checkBatch(ctx, tx, *item); err != nil {
				return err
			}
			if err := s.moveStock(ctx, tx, *item, delta, now); err != nil {
				return err
			}
		}

		item.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		out = *item
		return nil
	})
	if err != nil {
		return domain.PointRedemption{}, err
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	redemptionID, err := parseID(id)
	if err != nil {
		return err
	}

	var released int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.repo.FindByIDs(ctx, tx, []snowflake.ID{redemptionID}, option.ForUpdate())
		if err != nil {
			return err
		}
		item, ok := items[redemptionID]
		if !ok {
			return domain.ErrNotFound
		}
		if err := s.moveStock(ctx, tx, *item, -item.AvailableQuantity, s.clock.Now()); err != nil {
			return err
		}

		deleted, err := s.repo.Delete(ctx, tx, redemptionID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNotFound
		}
		released = item.AvailableQuantity
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("point redemption deleted",
		zap.String("redemption_id", redemptionID.String()),
		zap.Int64("released", released),
	)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.PointRedemption, error) {
	redemptionID, err := parseID(id)
	if err != nil {
		return domain.PointRedemption{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, redemptionID)
	if err != nil {
		return domain.PointRedemption{}, err
	}
	if item == nil {
		return domain.PointRedemption{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListActive(ctx context.Context) ([]*domain.PointRedemption, error) {
	return s.repo.ListActive(ctx, s.db, s.clock.Now())
}

// checkBatch ties the offer to a batch of its SKU.
func (s *Service) checkBatch(ctx context.Context, tx *gorm.DB, item domain.PointRedemption) error {
	batches, err := s.inventory.FindBatchesByIDs(ctx, tx, []snowflake.ID{item.BatchID}, option.ForUpdate())
	if err != nil {
		return err
	}
	batch, ok := batches[item.BatchID]
	if !ok {
		return inventorydomain.ErrBatchNotFound
	}
	if batch.SKU != item.SKU {
		return domain.ErrBatchMismatch
	}
	return nil
}

// moveStock reserves qty units of the offer's batch, or releases them when
// qty is negative, and refreshes the variant stock.
func (s *Service) moveStock(ctx context.Context, tx *gorm.DB, item domain.PointRedemption, qty int64, now time.Time) error {
	switch {
	case qty > 0:
		ok, err := s.inventory.DecrementBatch(ctx, tx, item.BatchID, qty)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrExceedsBatch
		}
	case qty < 0:
		ok, err := s.inventory.IncrementBatch(ctx, tx, item.BatchID, -qty)
		if err != nil {
			return err
		}
		if !ok {
			return inventorydomain.ErrBatchNotFound
		}
	default:
		return nil
	}
	_, err := s.inventory.RecomputeVariantStock(ctx, tx, item.SKU, now)
	return err
}

func validate(item domain.PointRedemption) error {
	if item.Name == "" {
		return domain.ErrInvalidName
	}
	if item.PointsRequired <= 0 {
		return domain.ErrInvalidPoints
	}
	if item.AvailableQuantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if item.StartDate.IsZero() || item.EndDate.IsZero() || item.EndDate.Before(item.StartDate) {
		return domain.ErrInvalidWindow
	}
	if !item.Status.Valid() {
		return domain.ErrInvalidStatus
	}
	return nil
}

func parseID(id string) (snowflake.ID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, domain.ErrRequired
	}
	parsed, err := snowflake.ParseString(id)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
