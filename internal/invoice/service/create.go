package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/loyalty"
	"github.com/smallbiznis/storeline/internal/principal"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type createInput struct {
	orderType     domain.OrderType
	lines         []domain.LineRequest
	paymentMethod domain.PaymentMethod
	address       string
	customerID    *snowflake.ID
	cashierID     *snowflake.ID
	phone         string
}

type plannedLine struct {
	req        domain.LineRequest
	variant    *inventorydomain.PricedVariant
	batch      *inventorydomain.Batch
	redemption *redemptiondomain.PointRedemption
}

type creationPlan struct {
	lines          []plannedLine
	usesRedemption bool
	pointsToSpend  int64
}

type creationResult struct {
	invoice      domain.Invoice
	pointsEarned int64
	pointsSpent  int64
}

func (s *Service) CreateOnlineInvoice(ctx context.Context, req domain.CreateOnlineInvoiceRequest, customerID *snowflake.ID) (domain.Invoice, error) {
	address, err := s.validateAddress(req.DeliveryAddress)
	if err != nil {
		s.metrics.RecordInvoiceRejected(ctx, string(domain.OrderTypeOnline), string(apperror.KindOf(err)))
		return domain.Invoice{}, err
	}
	if customerID != nil && *customerID == 0 {
		customerID = nil
	}

	actor := principal.Anonymous()
	if customerID != nil {
		actor = principal.Customer(*customerID)
	}

	return s.create(ctx, actor, createInput{
		orderType:     domain.OrderTypeOnline,
		lines:         req.Lines,
		paymentMethod: req.PaymentMethod,
		address:       address,
		customerID:    customerID,
	})
}

func (s *Service) CreateOfflineInvoice(ctx context.Context, req domain.CreateOfflineInvoiceRequest, cashierID snowflake.ID) (domain.Invoice, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		s.metrics.RecordInvoiceRejected(ctx, string(domain.OrderTypeOffline), string(apperror.KindInvalidArgument))
		return domain.Invoice{}, domain.ErrPhoneRequired
	}

	actor := principal.FromContext(ctx)
	if !actor.IsEmployee() {
		actor = principal.Staff(cashierID)
	}

	return s.create(ctx, actor, createInput{
		orderType:     domain.OrderTypeOffline,
		lines:         req.Lines,
		paymentMethod: req.PaymentMethod,
		cashierID:     &cashierID,
		phone:         phone,
	})
}

func (s *Service) create(ctx context.Context, actor principal.Principal, in createInput) (domain.Invoice, error) {
	result, err := s.runCreate(ctx, in)
	if err != nil {
		err = translateTxErr(err)
		s.metrics.RecordInvoiceRejected(ctx, string(in.orderType), string(apperror.KindOf(err)))
		if apperror.Is(err, apperror.KindInsufficientStock) || apperror.CodeOf(err) == inventorydomain.ErrStockInvariantViolated.Code {
			s.metrics.RecordStockConflict(ctx, "invoice_create")
		}
		return domain.Invoice{}, err
	}

	inv := result.invoice
	s.metrics.RecordInvoiceCreated(ctx, string(inv.OrderType))
	if result.pointsEarned > 0 {
		s.metrics.RecordPoints(ctx, result.pointsEarned)
	}
	if result.pointsSpent > 0 {
		s.metrics.RecordPoints(ctx, -result.pointsSpent)
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("order_type", string(inv.OrderType)),
		zap.String("total_amount", inv.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(inv.Details)),
		zap.Bool("is_anonymous", inv.IsAnonymous),
	)

	meta := map[string]any{
		"total_amount":  inv.TotalAmount.StringFixed(2),
		"lines":         len(inv.Details),
		"points_earned": result.pointsEarned,
		"points_spent":  result.pointsSpent,
	}
	if in.phone != "" {
		meta["customer_phone"] = in.phone
	}
	s.emitAudit(ctx, actor, auditdomain.ActionInvoiceCreated, inv, meta)
	return inv, nil
}

func (s *Service) runCreate(ctx context.Context, in createInput) (creationResult, error) {
	if len(in.lines) == 0 {
		return creationResult{}, domain.ErrLinesRequired
	}
	if !in.paymentMethod.Valid() {
		return creationResult{}, domain.ErrInvalidPaymentMethod
	}
	in.lines = append([]domain.LineRequest(nil), in.lines...)
	usesRedemption := false
	for i := range in.lines {
		in.lines[i].SKU = strings.TrimSpace(in.lines[i].SKU)
		if in.lines[i].SKU == "" {
			return creationResult{}, apperror.Wrapf(inventorydomain.ErrInvalidSKU, "line %d", i)
		}
		if in.lines[i].Quantity <= 0 {
			return creationResult{}, apperror.Wrapf(domain.ErrInvalidQuantity, "line %d", i)
		}
		if in.lines[i].IsPointRedemption {
			usesRedemption = true
		}
	}
	// Offline callers are resolved by phone inside the transaction, so the
	// anonymous check for them happens after the lookup.
	if usesRedemption && in.orderType == domain.OrderTypeOnline && in.customerID == nil {
		return creationResult{}, domain.ErrAnonymousRedemption
	}

	now := s.clock.Now()
	var result creationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customerID, err := s.resolveParties(ctx, tx, &in)
		if err != nil {
			return err
		}
		if usesRedemption && customerID == nil {
			return domain.ErrAnonymousRedemption
		}

		plan, err := s.planLines(ctx, tx, in.lines, now)
		if err != nil {
			return err
		}
		if plan.usesRedemption {
			balance, err := s.ledger.Balance(ctx, tx, *customerID)
			if err != nil {
				return err
			}
			if balance < plan.pointsToSpend {
				return apperror.Wrapf(loyalty.ErrInsufficientPoints, "balance %d, required %d", balance, plan.pointsToSpend)
			}
		}

		result, err = s.applyPlan(ctx, tx, in, customerID, plan, now)
		return err
	})
	if err != nil {
		return creationResult{}, err
	}
	return result, nil
}

// resolveParties validates the cashier and customer. For offline orders the
// customer comes from the phone lookup and may resolve to nobody.
func (s *Service) resolveParties(ctx context.Context, tx *gorm.DB, in *createInput) (*snowflake.ID, error) {
	if in.orderType == domain.OrderTypeOffline {
		if in.cashierID == nil || *in.cashierID == 0 {
			return nil, domain.ErrCashierNotFound
		}
		cashier, err := s.employees.FindByID(ctx, tx, *in.cashierID)
		if err != nil {
			return nil, err
		}
		if cashier == nil {
			return nil, domain.ErrCashierNotFound
		}

		matches, err := s.customers.FindByPhone(ctx, tx, in.phone, 2)
		if err != nil {
			return nil, err
		}
		switch len(matches) {
		case 0:
			return nil, nil
		case 1:
			id := matches[0].ID
			in.customerID = &id
			return &id, nil
		default:
			return nil, domain.ErrAmbiguousPhone
		}
	}

	if in.customerID == nil {
		return nil, nil
	}
	customer, err := s.customers.FindByID(ctx, tx, *in.customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}
	return in.customerID, nil
}

// planLines checks every precondition against bulk-loaded, row-locked state
// before anything is written.
func (s *Service) planLines(ctx context.Context, tx *gorm.DB, lines []domain.LineRequest, now time.Time) (creationPlan, error) {
	skus := make([]string, 0, len(lines))
	batchIDs := make([]snowflake.ID, 0, len(lines))
	redemptionIDs := make([]snowflake.ID, 0)
	seenSKU := map[string]bool{}
	seenBatch := map[snowflake.ID]bool{}
	seenRedemption := map[snowflake.ID]bool{}
	for _, line := range lines {
		if !seenSKU[line.SKU] {
			seenSKU[line.SKU] = true
			skus = append(skus, line.SKU)
		}
		if !seenBatch[line.BatchID] {
			seenBatch[line.BatchID] = true
			batchIDs = append(batchIDs, line.BatchID)
		}
		if line.IsPointRedemption && line.PointRedemptionID != nil && !seenRedemption[*line.PointRedemptionID] {
			seenRedemption[*line.PointRedemptionID] = true
			redemptionIDs = append(redemptionIDs, *line.PointRedemptionID)
		}
	}

	variants, err := s.inventory.FindVariantsBySKUs(ctx, tx, skus)
	if err != nil {
		return creationPlan{}, err
	}
	batches, err := s.inventory.FindBatchesByIDs(ctx, tx, batchIDs, option.ForUpdate())
	if err != nil {
		return creationPlan{}, err
	}

	plan := creationPlan{lines: make([]plannedLine, 0, len(lines))}
	requestedByBatch := map[snowflake.ID]int64{}
	for _, line := range lines {
		variant, ok := variants[line.SKU]
		if !ok {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrVariantNotFound, "sku %s", line.SKU)
		}
		if variant.ProductID != line.ProductID {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrProductMismatch, "sku %s belongs to product %s", line.SKU, variant.ProductID)
		}
		batch, ok := batches[line.BatchID]
		if !ok {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrBatchNotFound, "batch %s", line.BatchID)
		}
		if batch.SKU != line.SKU {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrBatchSKUMismatch, "batch %s holds sku %s", batch.ID, batch.SKU)
		}
		if batch.Expired(now) {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrBatchExpired, "batch %s", batch.ID)
		}
		requested, ok := addQuantity(requestedByBatch[batch.ID], line.Quantity)
		if !ok {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrInsufficientStock,
				"batch %s has %d, requested more than %d", batch.ID, batch.AvailableQuantity, int64(math.MaxInt64))
		}
		requestedByBatch[batch.ID] = requested
		plan.lines = append(plan.lines, plannedLine{req: line, variant: variant, batch: batch})
	}
	for _, id := range batchIDs {
		batch := batches[id]
		if requested := requestedByBatch[id]; batch.AvailableQuantity < requested {
			return creationPlan{}, apperror.Wrapf(inventorydomain.ErrInsufficientStock,
				"batch %s has %d, requested %d", id, batch.AvailableQuantity, requested)
		}
	}

	redemptions, err := s.redemptions.FindByIDs(ctx, tx, redemptionIDs, option.ForUpdate())
	if err != nil {
		return creationPlan{}, err
	}
	requestedByRedemption := map[snowflake.ID]int64{}
	for i := range plan.lines {
		line := plan.lines[i].req
		if !line.IsPointRedemption {
			continue
		}
		if line.PointRedemptionID == nil || *line.PointRedemptionID == 0 {
			return creationPlan{}, apperror.Wrapf(redemptiondomain.ErrRequired, "sku %s", line.SKU)
		}
		redemption, ok := redemptions[*line.PointRedemptionID]
		if !ok {
			return creationPlan{}, apperror.Wrapf(redemptiondomain.ErrNotFound, "redemption %s", *line.PointRedemptionID)
		}
		if redemption.SKU != line.SKU {
			return creationPlan{}, redemptiondomain.ErrSKUMismatch
		}
		if redemption.BatchID != line.BatchID {
			return creationPlan{}, redemptiondomain.ErrBatchMismatch
		}
		if !redemption.RedeemableAt(now) {
			return creationPlan{}, apperror.Wrapf(redemptiondomain.ErrNotRedeemable, "redemption %s", redemption.ID)
		}
		requested, ok := addQuantity(requestedByRedemption[redemption.ID], line.Quantity)
		if !ok {
			return creationPlan{}, apperror.Wrapf(redemptiondomain.ErrInsufficientQuantity,
				"redemption %s has %d", redemption.ID, redemption.AvailableQuantity)
		}
		requestedByRedemption[redemption.ID] = requested
		if redemption.PointsRequired > 0 && line.Quantity > math.MaxInt64/redemption.PointsRequired {
			return creationPlan{}, apperror.Wrapf(loyalty.ErrInsufficientPoints, "redemption %s", redemption.ID)
		}
		points, ok := addQuantity(plan.pointsToSpend, redemption.PointsRequired*line.Quantity)
		if !ok {
			return creationPlan{}, apperror.Wrapf(loyalty.ErrInsufficientPoints, "redemption %s", redemption.ID)
		}
		plan.pointsToSpend = points
		plan.usesRedemption = true
		plan.lines[i].redemption = redemption
	}
	for _, id := range redemptionIDs {
		redemption := redemptions[id]
		if requested := requestedByRedemption[id]; redemption.AvailableQuantity < requested {
			return creationPlan{}, apperror.Wrapf(redemptiondomain.ErrInsufficientQuantity,
				"redemption %s has %d, requested %d", id, redemption.AvailableQuantity, requested)
		}
	}

	return plan, nil
}

// addQuantity adds two non-negative amounts and reports false on overflow.
func addQuantity(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// applyPlan writes the invoice, its lines, the stock movements and the single
// point adjustment.
func (s *Service) applyPlan(ctx context.Context, tx *gorm.DB, in createInput, customerID *snowflake.ID, plan creationPlan, now time.Time) (creationResult, error) {
	inv := domain.Invoice{
		ID:              s.genID.Generate(),
		CashierID:       in.cashierID,
		CustomerID:      customerID,
		Discount:        decimal.Zero,
		PaymentMethod:   in.paymentMethod,
		Status:          domain.StatusPaid,
		TotalAmount:     decimal.Zero,
		DeliveryAddress: in.address,
		DeliveryStatus:  domain.DeliveryPending,
		OrderType:       in.orderType,
		IsAnonymous:     customerID == nil,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Insert(ctx, tx, &inv); err != nil {
		return creationResult{}, err
	}

	result := creationResult{}
	total := decimal.Zero
	inv.Details = make([]domain.InvoiceDetail, 0, len(plan.lines))
	for _, line := range plan.lines {
		lineTotal := decimal.Zero
		if line.redemption == nil {
			lineTotal = LineTotal(line.req.Quantity, line.variant.Price, line.variant.Discount)
		}

		detail := domain.InvoiceDetail{
			ID:                s.genID.Generate(),
			InvoiceID:         inv.ID,
			SKU:               line.req.SKU,
			BatchID:           line.batch.ID,
			Quantity:          line.req.Quantity,
			LineTotal:         lineTotal,
			IsPointRedemption: line.redemption != nil,
			CreatedAt:         now,
		}
		if line.redemption != nil {
			id := line.redemption.ID
			detail.PointRedemptionID = &id
		}
		if err := s.repo.InsertDetail(ctx, tx, &detail); err != nil {
			return creationResult{}, err
		}

		ok, err := s.inventory.DecrementBatch(ctx, tx, line.batch.ID, line.req.Quantity)
		if err != nil {
			return creationResult{}, err
		}
		if !ok {
			return creationResult{}, apperror.Wrapf(inventorydomain.ErrStockInvariantViolated, "batch %s", line.batch.ID)
		}
		if _, err := s.inventory.RecomputeVariantStock(ctx, tx, line.req.SKU, now); err != nil {
			return creationResult{}, err
		}

		if line.redemption != nil {
			ok, err := s.redemptions.Decrement(ctx, tx, line.redemption.ID, line.req.Quantity, now)
			if err != nil {
				return creationResult{}, err
			}
			if !ok {
				return creationResult{}, apperror.Wrapf(redemptiondomain.ErrInsufficientQuantity, "redemption %s", line.redemption.ID)
			}
		} else if !plan.usesRedemption && customerID != nil {
			result.pointsEarned += s.points.PointsEarned(lineTotal)
		}

		total = total.Add(lineTotal)
		inv.Details = append(inv.Details, detail)
	}

	inv.TotalAmount = total
	if err := s.repo.Update(ctx, tx, &inv); err != nil {
		return creationResult{}, err
	}

	if customerID != nil {
		if plan.usesRedemption {
			if err := s.ledger.Spend(ctx, tx, *customerID, inv.ID, plan.pointsToSpend); err != nil {
				return creationResult{}, err
			}
			result.pointsSpent = plan.pointsToSpend
		} else if err := s.ledger.Earn(ctx, tx, *customerID, inv.ID, result.pointsEarned); err != nil {
			return creationResult{}, err
		}
	}
	result.invoice = inv
	return result, nil
}

// LineTotal is quantity × price × (1 − discount) rounded to cents.
func LineTotal(quantity int64, price, discount decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(quantity).
		Mul(price).
		Mul(decimal.NewFromInt(1).Sub(discount)).
		Round(2)
}
