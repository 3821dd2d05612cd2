package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/internal/refund"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UpdateInvoice is the staff edit path.
func (s *Service) UpdateInvoice(ctx context.Context, id snowflake.ID, req domain.UpdateInvoiceRequest, p principal.Principal) (domain.Invoice, error) {
	if err := requireStaffPrincipal(p); err != nil {
		return domain.Invoice{}, err
	}
	if req.Feedback != nil || req.Star != nil {
		return domain.Invoice{}, domain.ErrFeedbackViaUpdate
	}
	if req.Empty() {
		return domain.Invoice{}, domain.ErrEmptyUpdate
	}

	changes := map[string]any{}
	var out domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.requireEmployee(ctx, tx, p); err != nil {
			return err
		}
		if inv.Status == domain.StatusCancelled {
			return domain.ErrInvoiceCancelled
		}
		if inv.DeliveryStatus == domain.DeliveryInTransit {
			if !req.OnlyDeliveryStatus() || !req.DeliveryStatus.Terminal() {
				return domain.ErrInTransitLocked
			}
		}

		if req.DeliveryAddress != nil {
			if !inv.CanChangeAddress() {
				return domain.ErrAddressLocked
			}
			address, err := s.validateAddress(*req.DeliveryAddress)
			if err != nil {
				return err
			}
			inv.DeliveryAddress = address
			changes["delivery_address"] = address
		}
		if req.DeliveryStatus != nil {
			if err := checkTransition(inv, *req.DeliveryStatus); err != nil {
				return err
			}
			changes["previous_delivery_status"] = string(inv.DeliveryStatus)
			inv.DeliveryStatus = *req.DeliveryStatus
		}
		if req.Discount != nil {
			if req.Discount.IsNegative() || req.Discount.GreaterThan(inv.TotalAmount) {
				return domain.ErrInvalidDiscount
			}
			inv.Discount = req.Discount.Round(2)
			changes["discount"] = inv.Discount.StringFixed(2)
		}
		if req.PaymentMethod != nil {
			if !req.PaymentMethod.Valid() {
				return domain.ErrInvalidPaymentMethod
			}
			inv.PaymentMethod = *req.PaymentMethod
			changes["payment_method"] = string(inv.PaymentMethod)
		}

		inv.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return domain.Invoice{}, translateTxErr(err)
	}

	s.emitAudit(ctx, p, auditdomain.ActionInvoiceUpdated, out, changes)
	return out, nil
}

// Cancel moves a paid invoice to CANCELLED. Stock and points stay as they
// are; the refund notifier settles the money.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID, p principal.Principal) (domain.Invoice, error) {
	if p.IsAnonymous() {
		return domain.Invoice{}, domain.ErrUnauthenticated
	}

	var (
		out        domain.Invoice
		wasPaid    bool
		prevStatus domain.Status
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, tx, inv, p); err != nil {
			return err
		}
		if inv.Status == domain.StatusCancelled {
			return domain.ErrAlreadyCancelled
		}
		if !inv.CanCancel() {
			return domain.ErrNotCancellable
		}

		prevStatus = inv.Status
		wasPaid = inv.Status == domain.StatusPaid
		inv.Status = domain.StatusCancelled
		inv.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return domain.Invoice{}, translateTxErr(err)
	}

	s.metrics.RecordInvoiceCancelled(ctx)
	s.log.Info("invoice cancelled",
		zap.String("invoice_id", out.ID.String()),
		zap.String("actor", p.String()),
	)
	if wasPaid && s.refund != nil {
		s.refund.RefundRequested(ctx, refund.Notice{
			InvoiceID:     out.ID,
			CustomerID:    out.CustomerID,
			Amount:        out.TotalAmount.Sub(out.Discount),
			PaymentMethod: string(out.PaymentMethod),
		})
	}
	s.emitAudit(ctx, p, auditdomain.ActionInvoiceCancelled, out, map[string]any{
		"previous_status":  string(prevStatus),
		"refund_requested": wasPaid,
	})
	return out, nil
}

func (s *Service) ProvideFeedback(ctx context.Context, id snowflake.ID, req domain.FeedbackRequest, p principal.Principal) (domain.Invoice, error) {
	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" || utf8.RuneCountInString(feedback) > s.policy.Get().MaxFeedbackLength {
		return domain.Invoice{}, domain.ErrInvalidFeedback
	}
	if req.Star < 1 || req.Star > 5 {
		return domain.Invoice{}, domain.ErrInvalidStar
	}
	if p.IsAnonymous() {
		return domain.Invoice{}, domain.ErrUnauthenticated
	}

	var out domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(inv, p); err != nil {
			return err
		}
		if inv.HasFeedback() {
			return domain.ErrFeedbackAlreadyGiven
		}
		if !inv.CanProvideFeedback() {
			return domain.ErrFeedbackNotAllowed
		}

		star := req.Star
		inv.Feedback = &feedback
		inv.Star = &star
		inv.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return domain.Invoice{}, translateTxErr(err)
	}

	s.emitAudit(ctx, p, auditdomain.ActionInvoiceFeedback, out, map[string]any{"star": req.Star})
	return out, nil
}

func (s *Service) SetDeliveryStatus(ctx context.Context, id snowflake.ID, status domain.DeliveryStatus, p principal.Principal) (domain.Invoice, error) {
	if err := requireStaffPrincipal(p); err != nil {
		return domain.Invoice{}, err
	}
	if !status.Valid() {
		return domain.Invoice{}, domain.ErrInvalidDeliveryStatus
	}

	var (
		out  domain.Invoice
		prev domain.DeliveryStatus
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.requireEmployee(ctx, tx, p); err != nil {
			return err
		}
		if err := checkTransition(inv, status); err != nil {
			return err
		}

		prev = inv.DeliveryStatus
		inv.DeliveryStatus = status
		inv.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return domain.Invoice{}, translateTxErr(err)
	}

	s.emitAudit(ctx, p, auditdomain.ActionInvoiceDeliveryStatus, out, map[string]any{
		"previous_delivery_status": string(prev),
	})
	return out, nil
}

// ChangeDeliveryAddress is the customer-initiated address edit.
func (s *Service) ChangeDeliveryAddress(ctx context.Context, id snowflake.ID, address string, p principal.Principal) (domain.Invoice, error) {
	address, err := s.validateAddress(address)
	if err != nil {
		return domain.Invoice{}, err
	}
	if p.IsAnonymous() {
		return domain.Invoice{}, domain.ErrUnauthenticated
	}

	var out domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(inv, p); err != nil {
			return err
		}
		if inv.Status == domain.StatusCancelled {
			return domain.ErrInvoiceCancelled
		}
		if !inv.CanChangeAddress() {
			return domain.ErrAddressLocked
		}

		inv.DeliveryAddress = address
		inv.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return domain.Invoice{}, translateTxErr(err)
	}

	s.emitAudit(ctx, p, auditdomain.ActionInvoiceAddressChanged, out, map[string]any{
		"delivery_address": address,
	})
	return out, nil
}

// checkTransition validates one delivery edge for inv.
func checkTransition(inv *domain.Invoice, to domain.DeliveryStatus) error {
	if !to.Valid() {
		return domain.ErrInvalidDeliveryStatus
	}
	if inv.Status == domain.StatusCancelled {
		return domain.ErrInvoiceCancelled
	}
	if inv.DeliveryStatus == to {
		return domain.ErrStatusUnchanged
	}
	if !inv.CanChangeStatus() {
		return domain.ErrStatusLocked
	}
	if !domain.IsValidTransition(inv.DeliveryStatus, to) {
		return domain.ErrInvalidTransition
	}
	return nil
}
