package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	CustomerID *snowflake.ID
	Status     *Status
	OrderType  *OrderType
	From       *time.Time
	To         *time.Time
	Cursor     *Cursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertDetail(ctx context.Context, db *gorm.DB, detail *InvoiceDetail) error
	// Update persists the mutable invoice fields.
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// FindByID loads the invoice with its details ordered by id.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*Invoice, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	ListPending(ctx context.Context, db *gorm.DB) ([]*Invoice, error)
}
