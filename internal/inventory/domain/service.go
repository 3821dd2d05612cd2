package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storeline/pkg/apperror"
)

type CreateProductRequest struct {
	Name     string          `json:"name"`
	Discount decimal.Decimal `json:"discount"`
}

type CreateVariantRequest struct {
	SKU       string          `json:"sku"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
}

type ReceiveBatchRequest struct {
	SKU            string     `json:"sku"`
	Quantity       int64      `json:"quantity"`
	ProductionDate *time.Time `json:"production_date,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

type AddStockRequest struct {
	BatchID  string `json:"batch_id"`
	Quantity int64  `json:"quantity"`
}

type VariantStock struct {
	Variant
	Discount decimal.Decimal `json:"discount"`
	Batches  []*Batch        `json:"batches"`
}

type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (Product, error)
	CreateVariant(ctx context.Context, req CreateVariantRequest) (Variant, error)
	ReceiveBatch(ctx context.Context, req ReceiveBatchRequest) (Batch, error)
	AddStock(ctx context.Context, req AddStockRequest) (Batch, error)
	GetVariant(ctx context.Context, sku string) (VariantStock, error)
}

var (
	ErrVariantNotFound        = apperror.New(apperror.KindNotFound, "variant_not_found")
	ErrBatchNotFound          = apperror.New(apperror.KindNotFound, "batch_not_found")
	ErrProductNotFound        = apperror.New(apperror.KindNotFound, "product_not_found")
	ErrProductMismatch        = apperror.New(apperror.KindInvalidArgument, "variant_product_mismatch")
	ErrBatchSKUMismatch       = apperror.New(apperror.KindInvalidArgument, "batch_sku_mismatch")
	ErrBatchExpired           = apperror.New(apperror.KindConflict, "batch_expired")
	ErrInsufficientStock      = apperror.New(apperror.KindInsufficientStock, "insufficient_stock")
	ErrStockInvariantViolated = apperror.New(apperror.KindConflict, "stock_invariant_violation")
	ErrInvalidQuantity        = apperror.New(apperror.KindInvalidArgument, "invalid_quantity")
	ErrInvalidSKU             = apperror.New(apperror.KindInvalidArgument, "invalid_sku")
	ErrInvalidName            = apperror.New(apperror.KindInvalidArgument, "invalid_name")
	ErrInvalidPrice           = apperror.New(apperror.KindInvalidArgument, "invalid_price")
	ErrInvalidDiscount        = apperror.New(apperror.KindInvalidArgument, "invalid_discount")
	ErrInvalidDateRange       = apperror.New(apperror.KindInvalidArgument, "invalid_date_range")
	ErrInvalidID              = apperror.New(apperror.KindInvalidArgument, "invalid_id")
	ErrSKUTaken               = apperror.New(apperror.KindConflict, "sku_already_exists")
)
