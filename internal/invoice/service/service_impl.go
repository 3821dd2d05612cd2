package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/config"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	employeedomain "github.com/smallbiznis/storeline/internal/employee/domain"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/loyalty"
	"github.com/smallbiznis/storeline/internal/observability/metrics"
	"github.com/smallbiznis/storeline/internal/principal"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/internal/refund"
	"github.com/smallbiznis/storeline/pkg/apperror"
	pkgdb "github.com/smallbiznis/storeline/pkg/db"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errConcurrentModification = apperror.New(apperror.KindConflict, "concurrent_modification")

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Policy *config.PolicyHolder

	Points      loyalty.Policy
	Ledger      *loyalty.Ledger
	Repo        domain.Repository
	Inventory   inventorydomain.Repository
	Redemptions redemptiondomain.Repository
	Customers   customerdomain.Repository
	Employees   employeedomain.Repository

	AuditSvc auditdomain.Service
	Refund   refund.Notifier
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service is the invoice engine. Every mutating operation runs in exactly
// one transaction; audit entries and refund notices go out after commit.
type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	policy *config.PolicyHolder

	points      loyalty.Policy
	ledger      *loyalty.Ledger
	repo        domain.Repository
	inventory   inventorydomain.Repository
	redemptions redemptiondomain.Repository
	customers   customerdomain.Repository
	employees   employeedomain.Repository

	auditSvc auditdomain.Service
	refund   refund.Notifier
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("invoice.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,

		points:      p.Points,
		ledger:      p.Ledger,
		repo:        p.Repo,
		inventory:   p.Inventory,
		redemptions: p.Redemptions,
		customers:   p.Customers,
		employees:   p.Employees,

		auditSvc: p.AuditSvc,
		refund:   p.Refund,
		metrics:  p.Metrics,
	}
}

// loadForUpdate reads the invoice inside tx and locks its row.
func (s *Service) loadForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, tx, id, option.ForUpdate())
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (s *Service) validateAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", domain.ErrAddressRequired
	}
	if utf8.RuneCountInString(address) > s.policy.Get().MaxAddressLength {
		return "", domain.ErrAddressTooLong
	}
	return address, nil
}

// translateTxErr surfaces lost races with other writers as conflicts.
func translateTxErr(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if pkgdb.IsConcurrencyErr(err) {
		return apperror.Wrapf(errConcurrentModification, "%v", err)
	}
	return err
}

func (s *Service) emitAudit(ctx context.Context, actor principal.Principal, action string, inv domain.Invoice, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	payload := map[string]any{
		"status":          string(inv.Status),
		"delivery_status": string(inv.DeliveryStatus),
		"order_type":      string(inv.OrderType),
	}
	for key, value := range metadata {
		payload[key] = value
	}
	if err := s.auditSvc.AuditLog(ctx, actor, action, auditdomain.TargetTypeInvoice, inv.ID.String(), payload); err != nil {
		s.log.Warn("failed to audit invoice",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func derefInvoices(items []*domain.Invoice) []domain.Invoice {
	out := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return out
}
