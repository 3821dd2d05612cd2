package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/storeline/pkg/apperror"
)

type CreateRequest struct {
	SKU               string    `json:"sku"`
	BatchID           string    `json:"batch_id"`
	Name              string    `json:"name"`
	PointsRequired    int64     `json:"points_required"`
	AvailableQuantity int64     `json:"available_quantity"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	Status            Status    `json:"status"`
}

type UpdateRequest struct {
	Name              *string    `json:"name,omitempty"`
	PointsRequired    *int64     `json:"points_required,omitempty"`
	AvailableQuantity *int64     `json:"available_quantity,omitempty"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Status            *Status    `json:"status,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (PointRedemption, error)
	Update(ctx context.Context, id string, req UpdateRequest) (PointRedemption, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (PointRedemption, error)
	ListActive(ctx context.Context) ([]*PointRedemption, error)
}

var (
	ErrNotFound             = apperror.New(apperror.KindNotFound, "point_redemption_not_found")
	ErrRequired             = apperror.New(apperror.KindInvalidArgument, "point_redemption_id_required")
	ErrInvalidID            = apperror.New(apperror.KindInvalidArgument, "invalid_id")
	ErrInvalidName          = apperror.New(apperror.KindInvalidArgument, "invalid_name")
	ErrInvalidPoints        = apperror.New(apperror.KindInvalidArgument, "invalid_points_required")
	ErrInvalidQuantity      = apperror.New(apperror.KindInvalidArgument, "invalid_quantity")
	ErrInvalidWindow        = apperror.New(apperror.KindInvalidArgument, "invalid_redemption_window")
	ErrInvalidStatus        = apperror.New(apperror.KindInvalidArgument, "invalid_status")
	ErrSKUMismatch          = apperror.New(apperror.KindInvalidArgument, "point_redemption_sku_mismatch")
	ErrBatchMismatch        = apperror.New(apperror.KindInvalidArgument, "point_redemption_batch_mismatch")
	ErrExceedsBatch         = apperror.New(apperror.KindConflict, "point_redemption_exceeds_batch")
	ErrNotRedeemable        = apperror.New(apperror.KindConflict, "point_redemption_not_redeemable")
	ErrInsufficientQuantity = apperror.New(apperror.KindConflict, "point_redemption_insufficient_quantity")
)
