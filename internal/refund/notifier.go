package refund

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	"github.com/smallbiznis/storeline/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sendTimeout = 15 * time.Second

// Notice describes a cancelled paid invoice awaiting refund settlement.
type Notice struct {
	InvoiceID     snowflake.ID
	CustomerID    *snowflake.ID
	Amount        decimal.Decimal
	PaymentMethod string
}

// Notifier is told once about every paid invoice that gets cancelled.
// Implementations must not block the caller on delivery.
type Notifier interface {
	RefundRequested(ctx context.Context, notice Notice)
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Email     email.Provider
	Customers customerdomain.Repository
}

type EmailNotifier struct {
	db        *gorm.DB
	log       *zap.Logger
	email     email.Provider
	customers customerdomain.Repository
	wait      chan struct{}
}

func NewEmailNotifier(p Params) Notifier {
	return &EmailNotifier{
		db:        p.DB,
		log:       p.Log.Named("refund.notifier"),
		email:     p.Email,
		customers: p.Customers,
	}
}

func (n *EmailNotifier) RefundRequested(ctx context.Context, notice Notice) {
	n.log.Info("refund requested",
		zap.String("invoice_id", notice.InvoiceID.String()),
		zap.String("amount", notice.Amount.StringFixed(2)),
		zap.String("payment_method", notice.PaymentMethod),
	)
	if notice.CustomerID == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		if n.wait != nil {
			defer func() { n.wait <- struct{}{} }()
		}
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := n.send(sendCtx, notice); err != nil {
			n.log.Warn("failed to send refund notification",
				zap.String("invoice_id", notice.InvoiceID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (n *EmailNotifier) send(ctx context.Context, notice Notice) error {
	customer, err := n.customers.FindByID(ctx, n.db, *notice.CustomerID)
	if err != nil {
		return err
	}
	if customer == nil || customer.Email == "" {
		return nil
	}
	return n.email.SendTemplate(ctx, []string{customer.Email}, "refund_requested", map[string]any{
		"customer_name":  customer.Name,
		"invoice_id":     notice.InvoiceID.String(),
		"amount":         notice.Amount.StringFixed(2),
		"payment_method": notice.PaymentMethod,
	})
}
