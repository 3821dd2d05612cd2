package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	auditrepo "github.com/smallbiznis/storeline/internal/audit/repository"
	auditservice "github.com/smallbiznis/storeline/internal/audit/service"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/config"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	customerrepo "github.com/smallbiznis/storeline/internal/customer/repository"
	employeedomain "github.com/smallbiznis/storeline/internal/employee/domain"
	employeerepo "github.com/smallbiznis/storeline/internal/employee/repository"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/storeline/internal/inventory/repository"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/invoice/repository"
	"github.com/smallbiznis/storeline/internal/loyalty"
	"github.com/smallbiznis/storeline/internal/observability/metrics"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
	redemptionrepo "github.com/smallbiznis/storeline/internal/redemption/repository"
	"github.com/smallbiznis/storeline/internal/refund"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const (
	productPlain      snowflake.ID = 1
	productDiscounted snowflake.ID = 2

	batchA1     snowflake.ID = 10
	batchA1Bulk snowflake.ID = 11
	batchA1Low  snowflake.ID = 12
	batchA1Old  snowflake.ID = 13
	batchB1     snowflake.ID = 14

	customerPlain snowflake.ID = 100
	customerPoor  snowflake.ID = 101
	customerRich  snowflake.ID = 102
	customerTwinA snowflake.ID = 103
	customerTwinB snowflake.ID = 104

	staffID   snowflake.ID = 7
	managerID snowflake.ID = 8

	offerA1       snowflake.ID = 20
	offerInactive snowflake.ID = 21
)

type mockRefund struct {
	mock.Mock
}

func (m *mockRefund) RefundRequested(ctx context.Context, notice refund.Notice) {
	m.Called(ctx, notice)
}

type fixture struct {
	svc         *Service
	db          *gorm.DB
	clock       *clock.FakeClock
	refund      *mockRefund
	inventory   inventorydomain.Repository
	redemptions redemptiondomain.Repository
	customers   customerdomain.Repository
	audit       auditdomain.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&inventorydomain.Product{},
		&inventorydomain.Variant{},
		&inventorydomain.Batch{},
		&redemptiondomain.PointRedemption{},
		&customerdomain.Customer{},
		&employeedomain.Employee{},
		&loyalty.PointEntry{},
		&domain.Invoice{},
		&domain.InvoiceDetail{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		db:          db,
		clock:       clock.NewFakeClock(testNow),
		refund:      &mockRefund{},
		inventory:   inventoryrepo.Provide(),
		redemptions: redemptionrepo.Provide(),
		customers:   customerrepo.Provide(),
	}
	f.seed(t)

	holder := config.NewStaticPolicyHolder(config.DefaultPolicy())
	f.audit = auditservice.NewService(auditservice.Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: auditrepo.Provide()})
	f.svc = New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       f.clock,
		Policy:      holder,
		Points:      loyalty.NewPolicy(holder),
		Ledger:      loyalty.NewLedger(loyalty.LedgerParams{GenID: node, Clock: f.clock, Customers: f.customers}),
		Repo:        repository.Provide(),
		Inventory:   f.inventory,
		Redemptions: f.redemptions,
		Customers:   f.customers,
		Employees:   employeerepo.Provide(),
		AuditSvc:    f.audit,
		Refund:      f.refund,
		Metrics:     metrics.NewNop(),
	}).(*Service)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	expired := testNow.Add(-24 * time.Hour)

	require.NoError(t, f.inventory.InsertProduct(ctx, f.db, &inventorydomain.Product{ID: productPlain, Name: "Kopi", Discount: decimal.Zero, CreatedAt: testNow}))
	require.NoError(t, f.inventory.InsertProduct(ctx, f.db, &inventorydomain.Product{ID: productDiscounted, Name: "Teh", Discount: decimal.RequireFromString("0.1"), CreatedAt: testNow}))
	require.NoError(t, f.inventory.InsertVariant(ctx, f.db, &inventorydomain.Variant{SKU: "A1", ProductID: productPlain, Price: decimal.NewFromInt(100), UpdatedAt: testNow}))
	require.NoError(t, f.inventory.InsertVariant(ctx, f.db, &inventorydomain.Variant{SKU: "B1", ProductID: productDiscounted, Price: decimal.RequireFromString("55.55"), UpdatedAt: testNow}))

	for _, b := range []inventorydomain.Batch{
		{ID: batchA1, SKU: "A1", AvailableQuantity: 5, CreatedAt: testNow},
		{ID: batchA1Bulk, SKU: "A1", AvailableQuantity: 100, CreatedAt: testNow},
		{ID: batchA1Low, SKU: "A1", AvailableQuantity: 1, CreatedAt: testNow},
		{ID: batchA1Old, SKU: "A1", AvailableQuantity: 9, ExpirationDate: &expired, CreatedAt: testNow},
		{ID: batchB1, SKU: "B1", AvailableQuantity: 10, CreatedAt: testNow},
	} {
		b := b
		require.NoError(t, f.inventory.InsertBatch(ctx, f.db, &b))
	}
	for _, sku := range []string{"A1", "B1"} {
		_, err := f.inventory.RecomputeVariantStock(ctx, f.db, sku, testNow)
		require.NoError(t, err)
	}

	for _, c := range []customerdomain.Customer{
		{ID: customerPlain, Name: "Citra", Phone: "0811", Email: "citra@example.com"},
		{ID: customerPoor, Name: "Rudi", Phone: "0812", Points: 10},
		{ID: customerRich, Name: "Sari", Phone: "0813", Points: 500},
		{ID: customerTwinA, Name: "Budi", Phone: "0899"},
		{ID: customerTwinB, Name: "Budi K", Phone: "0899"},
	} {
		c := c
		c.CreatedAt, c.UpdatedAt = testNow, testNow
		require.NoError(t, f.customers.Insert(ctx, f.db, &c))
	}

	employees := employeerepo.Provide()
	require.NoError(t, employees.Insert(ctx, f.db, &employeedomain.Employee{ID: staffID, Name: "Kasir", Role: employeedomain.RoleStaff, CreatedAt: testNow}))
	require.NoError(t, employees.Insert(ctx, f.db, &employeedomain.Employee{ID: managerID, Name: "Manajer", Role: employeedomain.RoleManager, CreatedAt: testNow}))

	for _, r := range []redemptiondomain.PointRedemption{
		{ID: offerA1, SKU: "A1", BatchID: batchA1, Name: "Free kopi", PointsRequired: 50, AvailableQuantity: 3,
			StartDate: testNow.Add(-time.Hour), EndDate: testNow.Add(24 * time.Hour), Status: redemptiondomain.StatusActive},
		{ID: offerInactive, SKU: "A1", BatchID: batchA1, Name: "Old promo", PointsRequired: 5, AvailableQuantity: 3,
			StartDate: testNow.Add(-time.Hour), EndDate: testNow.Add(24 * time.Hour), Status: redemptiondomain.StatusInactive},
	} {
		r := r
		r.CreatedAt, r.UpdatedAt = testNow, testNow
		require.NoError(t, f.redemptions.Insert(ctx, f.db, &r))
	}
}

func (f *fixture) batchQty(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	batches, err := f.inventory.FindBatchesByIDs(context.Background(), f.db, []snowflake.ID{id})
	require.NoError(t, err)
	require.Contains(t, batches, id)
	return batches[id].AvailableQuantity
}

func (f *fixture) variantStock(t *testing.T, sku string) int64 {
	t.Helper()
	variants, err := f.inventory.FindVariantsBySKUs(context.Background(), f.db, []string{sku})
	require.NoError(t, err)
	require.Contains(t, variants, sku)
	return variants[sku].Stock
}

func (f *fixture) points(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	c, err := f.customers.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c.Points
}

func (f *fixture) redemptionQty(t *testing.T, id snowflake.ID) int64 {
	t.Helper()
	r, err := f.redemptions.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, r)
	return r.AvailableQuantity
}

func (f *fixture) invoiceCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Invoice{}).Count(&n).Error)
	return n
}

func idPtr(id snowflake.ID) *snowflake.ID {
	return &id
}

func line(sku string, qty int64, batch, product snowflake.ID) domain.LineRequest {
	return domain.LineRequest{SKU: sku, Quantity: qty, BatchID: batch, ProductID: product}
}

func redeemLine(qty int64, offer snowflake.ID) domain.LineRequest {
	return domain.LineRequest{
		SKU:               "A1",
		Quantity:          qty,
		BatchID:           batchA1,
		ProductID:         productPlain,
		IsPointRedemption: true,
		PointRedemptionID: idPtr(offer),
	}
}

func onlineRequest(lines ...domain.LineRequest) domain.CreateOnlineInvoiceRequest {
	return domain.CreateOnlineInvoiceRequest{
		Lines:           lines,
		PaymentMethod:   domain.PaymentCash,
		DeliveryAddress: "Jl. Merdeka 10, Bandung",
	}
}

// createPaid creates a paid online invoice for the customer.
func (f *fixture) createPaid(t *testing.T, customerID snowflake.ID) domain.Invoice {
	t.Helper()
	inv, err := f.svc.CreateOnlineInvoice(context.Background(), onlineRequest(line("A1", 1, batchA1Bulk, productPlain)), idPtr(customerID))
	require.NoError(t, err)
	return inv
}
