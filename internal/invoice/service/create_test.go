package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/loyalty"
	"github.com/smallbiznis/storeline/internal/principal"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestOnlinePurchase(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(line("A1", 2, batchA1, productPlain)), idPtr(customerPlain))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(200).Equal(inv.TotalAmount))
	assert.Equal(t, domain.StatusPaid, inv.Status)
	assert.Equal(t, domain.DeliveryPending, inv.DeliveryStatus)
	assert.Equal(t, domain.OrderTypeOnline, inv.OrderType)
	assert.False(t, inv.IsAnonymous)
	require.Len(t, inv.Details, 1)
	assert.True(t, decimal.NewFromInt(200).Equal(inv.Details[0].LineTotal))

	assert.Equal(t, int64(3), f.batchQty(t, batchA1))
	assert.Equal(t, int64(3+100+1+9), f.variantStock(t, "A1"))
	assert.Equal(t, int64(0), f.points(t, customerPlain))

	stored, err := f.svc.GetInvoiceByID(context.Background(), inv.ID, principal.Customer(customerPlain))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(stored.TotalAmount))
	assert.Len(t, stored.Details, 1)
}

func TestOnlinePurchaseEarnsPointsPerLine(t *testing.T) {
	f := newFixture(t)

	// 12 x 100 = 1200 earns 1; 10 x 55.55 x 0.9 = 499.95 earns 0.
	inv, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(
		line("A1", 12, batchA1Bulk, productPlain),
		line("B1", 10, batchB1, productDiscounted),
	), idPtr(customerPlain))
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("1699.95").Equal(inv.TotalAmount), inv.TotalAmount.String())
	assert.Equal(t, int64(1), f.points(t, customerPlain))

	entries, err := f.svc.ledger.Entries(context.Background(), f.db, customerPlain)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, loyalty.ReasonEarn, entries[0].Reason)
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "99.99", LineTotal(2, decimal.RequireFromString("55.55"), decimal.RequireFromString("0.1")).StringFixed(2))
	assert.Equal(t, "200.00", LineTotal(2, decimal.NewFromInt(100), decimal.Zero).StringFixed(2))
	assert.Equal(t, "0.33", LineTotal(1, decimal.RequireFromString("0.333"), decimal.Zero).StringFixed(2))
}

func TestInsufficientStockLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(line("A1", 2, batchA1Low, productPlain)), idPtr(customerPlain))
	require.Error(t, err)
	assert.Equal(t, apperror.KindInsufficientStock, apperror.KindOf(err))

	assert.Equal(t, int64(1), f.batchQty(t, batchA1Low))
	assert.Equal(t, int64(0), f.points(t, customerPlain))
	assert.Equal(t, int64(0), f.invoiceCount(t))
}

func TestRequestedQuantityIsSummedPerBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(
		line("A1", 3, batchA1, productPlain),
		line("A1", 3, batchA1, productPlain),
	), idPtr(customerPlain))
	assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)
	assert.Equal(t, int64(5), f.batchQty(t, batchA1))
}

func TestRedemptionExceedingBalance(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(redeemLine(1, offerA1)), idPtr(customerPoor))
	assert.ErrorIs(t, err, loyalty.ErrInsufficientPoints)
	assert.Equal(t, apperror.KindInsufficientPoints, apperror.KindOf(err))

	assert.Equal(t, int64(0), f.invoiceCount(t))
	assert.Equal(t, int64(5), f.batchQty(t, batchA1))
	assert.Equal(t, int64(3), f.redemptionQty(t, offerA1))
	assert.Equal(t, int64(10), f.points(t, customerPoor))
}

func TestRedemptionSpendsAndNeverEarns(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(
		redeemLine(2, offerA1),
		line("A1", 20, batchA1Bulk, productPlain),
	), idPtr(customerRich))
	require.NoError(t, err)

	require.Len(t, inv.Details, 2)
	assert.True(t, inv.Details[0].IsPointRedemption)
	assert.True(t, inv.Details[0].LineTotal.IsZero())
	require.NotNil(t, inv.Details[0].PointRedemptionID)
	assert.True(t, decimal.NewFromInt(2000).Equal(inv.TotalAmount))

	assert.Equal(t, int64(400), f.points(t, customerRich))
	assert.Equal(t, int64(1), f.redemptionQty(t, offerA1))
	assert.Equal(t, int64(3), f.batchQty(t, batchA1))
	assert.Equal(t, int64(80), f.batchQty(t, batchA1Bulk))

	entries, err := f.svc.ledger.Entries(context.Background(), f.db, customerRich)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, loyalty.ReasonSpend, entries[0].Reason)
	assert.Equal(t, int64(-100), entries[0].Delta)
}

func TestRedemptionQuantityIsSummedPerOffer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(
		redeemLine(2, offerA1),
		redeemLine(2, offerA1),
	), idPtr(customerRich))
	assert.ErrorIs(t, err, redemptiondomain.ErrInsufficientQuantity)
	assert.Equal(t, int64(500), f.points(t, customerRich))
}

func TestAnonymousRedemptionForbidden(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(redeemLine(1, offerA1)), nil)
	assert.ErrorIs(t, err, domain.ErrAnonymousRedemption)
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

func TestAnonymousOnlinePurchase(t *testing.T) {
	f := newFixture(t)

	inv, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(line("A1", 1, batchA1, productPlain)), nil)
	require.NoError(t, err)
	assert.True(t, inv.IsAnonymous)
	assert.Nil(t, inv.CustomerID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateOnlineInvoiceRequest
		want error
	}{
		{"no lines", onlineRequest(), domain.ErrLinesRequired},
		{"zero quantity", onlineRequest(line("A1", 0, batchA1, productPlain)), domain.ErrInvalidQuantity},
		{"unknown sku", onlineRequest(line("ZZ", 1, batchA1, productPlain)), inventorydomain.ErrVariantNotFound},
		{"product mismatch", onlineRequest(line("A1", 1, batchA1, productDiscounted)), inventorydomain.ErrProductMismatch},
		{"unknown batch", onlineRequest(line("A1", 1, 999, productPlain)), inventorydomain.ErrBatchNotFound},
		{"batch of other sku", onlineRequest(line("A1", 1, batchB1, productPlain)), inventorydomain.ErrBatchSKUMismatch},
		{"expired batch", onlineRequest(line("A1", 1, batchA1Old, productPlain)), inventorydomain.ErrBatchExpired},
		{"redemption without id", onlineRequest(domain.LineRequest{SKU: "A1", Quantity: 1, BatchID: batchA1, ProductID: productPlain, IsPointRedemption: true}), redemptiondomain.ErrRequired},
		{"unknown redemption", onlineRequest(redeemLine(1, 999)), redemptiondomain.ErrNotFound},
		{"inactive redemption", onlineRequest(redeemLine(1, offerInactive)), redemptiondomain.ErrNotRedeemable},
		{"redemption on other batch", onlineRequest(domain.LineRequest{SKU: "A1", Quantity: 1, BatchID: batchA1Bulk, ProductID: productPlain, IsPointRedemption: true, PointRedemptionID: idPtr(offerA1)}), redemptiondomain.ErrBatchMismatch},
		{"missing address", domain.CreateOnlineInvoiceRequest{Lines: []domain.LineRequest{line("A1", 1, batchA1, productPlain)}, PaymentMethod: domain.PaymentCash}, domain.ErrAddressRequired},
		{"long address", domain.CreateOnlineInvoiceRequest{Lines: []domain.LineRequest{line("A1", 1, batchA1, productPlain)}, PaymentMethod: domain.PaymentCash, DeliveryAddress: strings.Repeat("x", 501)}, domain.ErrAddressTooLong},
		{"bad payment method", domain.CreateOnlineInvoiceRequest{Lines: []domain.LineRequest{line("A1", 1, batchA1, productPlain)}, PaymentMethod: "CHEQUE", DeliveryAddress: "x"}, domain.ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateOnlineInvoice(ctx, tt.req, idPtr(customerRich))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, int64(0), f.invoiceCount(t))
	assert.Equal(t, int64(5), f.batchQty(t, batchA1))
	assert.Equal(t, int64(500), f.points(t, customerRich))
}

func TestCreateForUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(line("A1", 1, batchA1, productPlain)), idPtr(999))
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)
}

func TestExpiryUsesClock(t *testing.T) {
	f := newFixture(t)
	// Redemption windows end a day after testNow.
	f.clock.Advance(48 * time.Hour)

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(redeemLine(1, offerA1)), idPtr(customerRich))
	assert.ErrorIs(t, err, redemptiondomain.ErrNotRedeemable)
}

func TestOfflineInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offline := func(phone string, lines ...domain.LineRequest) domain.CreateOfflineInvoiceRequest {
		return domain.CreateOfflineInvoiceRequest{Lines: lines, PaymentMethod: domain.PaymentDebitCard, Phone: phone}
	}

	inv, err := f.svc.CreateOfflineInvoice(ctx, offline("0811", line("A1", 1, batchA1, productPlain)), staffID)
	require.NoError(t, err)
	require.NotNil(t, inv.CustomerID)
	assert.Equal(t, customerPlain, *inv.CustomerID)
	require.NotNil(t, inv.CashierID)
	assert.Equal(t, staffID, *inv.CashierID)
	assert.Equal(t, domain.OrderTypeOffline, inv.OrderType)

	inv, err = f.svc.CreateOfflineInvoice(ctx, offline("0000", line("A1", 1, batchA1, productPlain)), staffID)
	require.NoError(t, err)
	assert.True(t, inv.IsAnonymous)
	assert.Nil(t, inv.CustomerID)

	_, err = f.svc.CreateOfflineInvoice(ctx, offline("0899", line("A1", 1, batchA1, productPlain)), staffID)
	assert.ErrorIs(t, err, domain.ErrAmbiguousPhone)

	_, err = f.svc.CreateOfflineInvoice(ctx, offline("0811", line("A1", 1, batchA1, productPlain)), snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrCashierNotFound)

	_, err = f.svc.CreateOfflineInvoice(ctx, offline(" ", line("A1", 1, batchA1, productPlain)), staffID)
	assert.ErrorIs(t, err, domain.ErrPhoneRequired)

	_, err = f.svc.CreateOfflineInvoice(ctx, offline("0000", redeemLine(1, offerA1)), staffID)
	assert.ErrorIs(t, err, domain.ErrAnonymousRedemption)

	assert.Equal(t, int64(3), f.batchQty(t, batchA1))
}

func TestStockInvariantAcrossInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	batches := []snowflake.ID{batchA1, batchA1Bulk, batchA1Low, batchB1}

	before := int64(0)
	for _, id := range batches {
		before += f.batchQty(t, id)
	}

	requests := [][]domain.LineRequest{
		{line("A1", 2, batchA1, productPlain), line("B1", 3, batchB1, productDiscounted)},
		{line("A1", 4, batchA1, productPlain)},
		{line("A1", 1, batchA1Low, productPlain), line("A1", 7, batchA1Bulk, productPlain)},
		{line("B1", 8, batchB1, productDiscounted)},
		{line("A1", 3, batchA1, productPlain)},
	}

	decremented := int64(0)
	for _, lines := range requests {
		inv, err := f.svc.CreateOnlineInvoice(ctx, onlineRequest(lines...), idPtr(customerPlain))
		if err != nil {
			continue
		}
		for _, d := range inv.Details {
			decremented += d.Quantity
		}
	}

	after := int64(0)
	for _, id := range batches {
		qty := f.batchQty(t, id)
		assert.GreaterOrEqual(t, qty, int64(0))
		after += qty
	}
	assert.Equal(t, before-decremented, after)
	assert.Equal(t, int64(16), decremented)
	assert.Equal(t, int64(0+93+0+9), f.variantStock(t, "A1"))
	assert.Equal(t, int64(7), f.variantStock(t, "B1"))
}

// failingDecrements reports no affected rows from the nth batch decrement on.
type failingDecrements struct {
	inventorydomain.Repository
	failFrom int
	calls    int
}

func (r *failingDecrements) DecrementBatch(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64) (bool, error) {
	r.calls++
	if r.calls >= r.failFrom {
		return false, nil
	}
	return r.Repository.DecrementBatch(ctx, db, id, qty)
}

// failingPoints fails every balance write.
type failingPoints struct {
	customerdomain.Repository
	err error
}

func (r *failingPoints) AdjustPoints(context.Context, *gorm.DB, snowflake.ID, int64, time.Time) (bool, error) {
	return false, r.err
}

func (f *fixture) detailCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.InvoiceDetail{}).Count(&n).Error)
	return n
}

func TestLateDecrementFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.svc.inventory = &failingDecrements{Repository: f.inventory, failFrom: 2}

	_, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(
		line("A1", 2, batchA1, productPlain),
		line("B1", 3, batchB1, productDiscounted),
	), idPtr(customerPlain))
	assert.ErrorIs(t, err, inventorydomain.ErrStockInvariantViolated)
	assert.Equal(t, "stock_invariant_violation", apperror.CodeOf(err))

	assert.Equal(t, int64(0), f.invoiceCount(t))
	assert.Equal(t, int64(0), f.detailCount(t))
	assert.Equal(t, int64(5), f.batchQty(t, batchA1))
	assert.Equal(t, int64(10), f.batchQty(t, batchB1))
	assert.Equal(t, int64(115), f.variantStock(t, "A1"))
	assert.Equal(t, int64(10), f.variantStock(t, "B1"))
	assert.Equal(t, int64(0), f.points(t, customerPlain))
}

func TestPointSpendFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	writeErr := errors.New("points write failed")
	f.svc.ledger = loyalty.NewLedger(loyalty.LedgerParams{
		GenID:     node,
		Clock:     f.clock,
		Customers: &failingPoints{Repository: f.customers, err: writeErr},
	})

	_, err = f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(
		redeemLine(1, offerA1),
		line("A1", 4, batchA1Bulk, productPlain),
	), idPtr(customerRich))
	assert.ErrorIs(t, err, writeErr)

	assert.Equal(t, int64(0), f.invoiceCount(t))
	assert.Equal(t, int64(0), f.detailCount(t))
	assert.Equal(t, int64(5), f.batchQty(t, batchA1))
	assert.Equal(t, int64(100), f.batchQty(t, batchA1Bulk))
	assert.Equal(t, int64(115), f.variantStock(t, "A1"))
	assert.Equal(t, int64(3), f.redemptionQty(t, offerA1))
	assert.Equal(t, int64(500), f.points(t, customerRich))

	entries, err := f.svc.ledger.Entries(context.Background(), f.db, customerRich)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOverflowingQuantitiesAreRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateOnlineInvoice(ctx, onlineRequest(
		line("A1", math.MaxInt64, batchA1Bulk, productPlain),
		line("A1", math.MaxInt64, batchA1Bulk, productPlain),
	), idPtr(customerPlain))
	assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)

	_, err = f.svc.CreateOnlineInvoice(ctx, onlineRequest(
		redeemLine(math.MaxInt64, offerA1),
		redeemLine(1, offerA1),
	), idPtr(customerRich))
	assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)

	// A batch and offer large enough that only the points total overflows.
	const hugeBatch, hugeOffer snowflake.ID = 15, 22
	require.NoError(t, f.inventory.InsertBatch(ctx, f.db, &inventorydomain.Batch{ID: hugeBatch, SKU: "A1", AvailableQuantity: math.MaxInt64, CreatedAt: testNow}))
	require.NoError(t, f.redemptions.Insert(ctx, f.db, &redemptiondomain.PointRedemption{
		ID: hugeOffer, SKU: "A1", BatchID: hugeBatch, Name: "Bulk", PointsRequired: 50, AvailableQuantity: math.MaxInt64,
		StartDate: testNow.Add(-time.Hour), EndDate: testNow.Add(time.Hour), Status: redemptiondomain.StatusActive,
		CreatedAt: testNow, UpdatedAt: testNow,
	}))
	_, err = f.svc.CreateOnlineInvoice(ctx, onlineRequest(domain.LineRequest{
		SKU: "A1", Quantity: math.MaxInt64/50 + 1, BatchID: hugeBatch, ProductID: productPlain,
		IsPointRedemption: true, PointRedemptionID: idPtr(hugeOffer),
	}), idPtr(customerRich))
	assert.ErrorIs(t, err, loyalty.ErrInsufficientPoints)

	assert.Equal(t, int64(0), f.invoiceCount(t))
	assert.Equal(t, int64(100), f.batchQty(t, batchA1Bulk))
	assert.Equal(t, int64(math.MaxInt64), f.batchQty(t, hugeBatch))
	assert.Equal(t, int64(500), f.points(t, customerRich))
}
