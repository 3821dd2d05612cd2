package loyalty

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/clock"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type Reason string

const (
	ReasonEarn  Reason = "EARN"
	ReasonSpend Reason = "SPEND"
)

// PointEntry records one balance movement caused by an invoice.
type PointEntry struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID `gorm:"not null;index" json:"customer_id"`
	InvoiceID  snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Delta      int64        `gorm:"not null" json:"delta"`
	Reason     Reason       `gorm:"type:varchar(16);not null" json:"reason"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (PointEntry) TableName() string { return "point_entries" }

var (
	ErrInsufficientPoints = apperror.New(apperror.KindInsufficientPoints, "insufficient_points")
	ErrInvalidPoints      = apperror.New(apperror.KindInvalidArgument, "invalid_points")
)

type LedgerParams struct {
	fx.In

	GenID     *snowflake.Node
	Clock     clock.Clock
	Customers customerdomain.Repository
}

// Ledger is the customer point balance. Every method runs on the handle it
// is given so it joins the caller's transaction.
type Ledger struct {
	genID     *snowflake.Node
	clock     clock.Clock
	customers customerdomain.Repository
}

func NewLedger(p LedgerParams) *Ledger {
	return &Ledger{genID: p.GenID, clock: p.Clock, customers: p.Customers}
}

func (l *Ledger) Balance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (int64, error) {
	customer, err := l.customers.FindByID(ctx, db, customerID)
	if err != nil {
		return 0, err
	}
	if customer == nil {
		return 0, customerdomain.ErrNotFound
	}
	return customer.Points, nil
}

func (l *Ledger) Earn(ctx context.Context, db *gorm.DB, customerID, invoiceID snowflake.ID, points int64) error {
	if points < 0 {
		return ErrInvalidPoints
	}
	if points == 0 {
		return nil
	}
	return l.apply(ctx, db, customerID, invoiceID, points, ReasonEarn)
}

func (l *Ledger) Spend(ctx context.Context, db *gorm.DB, customerID, invoiceID snowflake.ID, points int64) error {
	if points < 0 {
		return ErrInvalidPoints
	}
	if points == 0 {
		return nil
	}
	return l.apply(ctx, db, customerID, invoiceID, -points, ReasonSpend)
}

func (l *Ledger) apply(ctx context.Context, db *gorm.DB, customerID, invoiceID snowflake.ID, delta int64, reason Reason) error {
	now := l.clock.Now()
	ok, err := l.customers.AdjustPoints(ctx, db, customerID, delta, now)
	if err != nil {
		return err
	}
	if !ok {
		customer, err := l.customers.FindByID(ctx, db, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return customerdomain.ErrNotFound
		}
		return apperror.Wrapf(ErrInsufficientPoints, "balance %d, requested %d", customer.Points, -delta)
	}

	entry := PointEntry{
		ID:         l.genID.Generate(),
		CustomerID: customerID,
		InvoiceID:  invoiceID,
		Delta:      delta,
		Reason:     reason,
		CreatedAt:  now,
	}
	return db.WithContext(ctx).Create(&entry).Error
}

func (l *Ledger) Entries(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]PointEntry, error) {
	var entries []PointEntry
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	return entries, err
}
