package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storeline/internal/clock"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	inventoryrepo "github.com/smallbiznis/storeline/internal/inventory/repository"
	"github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/internal/redemption/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	db      *gorm.DB
	clock   *clock.FakeClock
	batchID snowflake.ID
}

func newFixture(t *testing.T) fixture {
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
		&domain.PointRedemption{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	ctx := context.Background()
	inv := inventoryrepo.Provide()
	require.NoError(t, inv.InsertProduct(ctx, db, &inventorydomain.Product{ID: 1, Name: "Kopi", Discount: decimal.Zero, CreatedAt: now}))
	require.NoError(t, inv.InsertVariant(ctx, db, &inventorydomain.Variant{SKU: "A1", ProductID: 1, Price: decimal.NewFromInt(100), UpdatedAt: now}))
	require.NoError(t, inv.InsertVariant(ctx, db, &inventorydomain.Variant{SKU: "B1", ProductID: 1, Price: decimal.NewFromInt(50), UpdatedAt: now}))
	require.NoError(t, inv.InsertBatch(ctx, db, &inventorydomain.Batch{ID: 10, SKU: "A1", AvailableQuantity: 5, CreatedAt: now}))

	fc := clock.NewFakeClock(now)
	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fc,
		Repo:      repository.Provide(),
		Inventory: inv,
	})
	return fixture{svc: svc.(*Service), db: db, clock: fc, batchID: 10}
}

func validRequest(batchID snowflake.ID) domain.CreateRequest {
	return domain.CreateRequest{
		SKU:               "A1",
		BatchID:           batchID.String(),
		Name:              "Free coffee",
		PointsRequired:    50,
		AvailableQuantity: 3,
		StartDate:         now.Add(-time.Hour),
		EndDate:           now.Add(24 * time.Hour),
	}
}

func (f fixture) stock(t *testing.T) (batch int64, variant int64) {
	t.Helper()
	ctx := context.Background()
	inv := inventoryrepo.Provide()
	batches, err := inv.FindBatchesByIDs(ctx, f.db, []snowflake.ID{f.batchID})
	require.NoError(t, err)
	variants, err := inv.FindVariantsBySKUs(ctx, f.db, []string{"A1"})
	require.NoError(t, err)
	return batches[f.batchID].AvailableQuantity, variants["A1"].Stock
}

func TestCreateReservesBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, validRequest(f.batchID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, item.Status)

	batch, variant := f.stock(t)
	assert.Equal(t, int64(2), batch)
	assert.Equal(t, int64(2), variant)

	// only 2 units are left on the batch
	req := validRequest(f.batchID)
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrExceedsBatch)
	batch, _ = f.stock(t)
	assert.Equal(t, int64(2), batch)
}

func TestUpdateMovesReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, validRequest(f.batchID))
	require.NoError(t, err)

	more := int64(5)
	updated, err := f.svc.Update(ctx, item.ID.String(), domain.UpdateRequest{AvailableQuantity: &more})
	require.NoError(t, err)
	assert.Equal(t, int64(5), updated.AvailableQuantity)
	batch, variant := f.stock(t)
	assert.Equal(t, int64(0), batch)
	assert.Equal(t, int64(0), variant)

	fewer := int64(1)
	_, err = f.svc.Update(ctx, item.ID.String(), domain.UpdateRequest{AvailableQuantity: &fewer})
	require.NoError(t, err)
	batch, variant = f.stock(t)
	assert.Equal(t, int64(4), batch)
	assert.Equal(t, int64(4), variant)

	tooMany := int64(6)
	_, err = f.svc.Update(ctx, item.ID.String(), domain.UpdateRequest{AvailableQuantity: &tooMany})
	assert.ErrorIs(t, err, domain.ErrExceedsBatch)
	batch, _ = f.stock(t)
	assert.Equal(t, int64(4), batch)

	got, err := f.svc.Get(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AvailableQuantity)
}

func TestDeleteReleasesBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, validRequest(f.batchID))
	require.NoError(t, err)
	batch, _ := f.stock(t)
	require.Equal(t, int64(2), batch)

	require.NoError(t, f.svc.Delete(ctx, item.ID.String()))
	batch, variant := f.stock(t)
	assert.Equal(t, int64(5), batch)
	assert.Equal(t, int64(5), variant)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.CreateRequest)
		want   error
	}{
		{"exceeds_batch", func(r *domain.CreateRequest) { r.AvailableQuantity = 6 }, domain.ErrExceedsBatch},
		{"wrong_sku", func(r *domain.CreateRequest) { r.SKU = "B1" }, domain.ErrBatchMismatch},
		{"missing_batch", func(r *domain.CreateRequest) { r.BatchID = "99" }, inventorydomain.ErrBatchNotFound},
		{"bad_window", func(r *domain.CreateRequest) { r.EndDate = r.StartDate.Add(-time.Minute) }, domain.ErrInvalidWindow},
		{"zero_points", func(r *domain.CreateRequest) { r.PointsRequired = 0 }, domain.ErrInvalidPoints},
		{"empty_name", func(r *domain.CreateRequest) { r.Name = " " }, domain.ErrInvalidName},
		{"bad_status", func(r *domain.CreateRequest) { r.Status = "PAUSED" }, domain.ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(f.batchID)
			tt.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateAndListActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, validRequest(f.batchID))
	require.NoError(t, err)

	active, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	inactive := domain.StatusInactive
	updated, err := f.svc.Update(ctx, item.ID.String(), domain.UpdateRequest{Status: &inactive})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, updated.Status)

	active, err = f.svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	tooMany := int64(9)
	_, err = f.svc.Update(ctx, item.ID.String(), domain.UpdateRequest{AvailableQuantity: &tooMany})
	assert.ErrorIs(t, err, domain.ErrExceedsBatch)
}

func TestDeleteAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.Create(ctx, validRequest(f.batchID))
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Free coffee", got.Name)

	require.NoError(t, f.svc.Delete(ctx, item.ID.String()))
	assert.ErrorIs(t, f.svc.Delete(ctx, item.ID.String()), domain.ErrNotFound)

	_, err = f.svc.Get(ctx, item.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(ctx, "")
	assert.ErrorIs(t, err, domain.ErrRequired)
}

func TestRedeemableAt(t *testing.T) {
	item := domain.PointRedemption{Status: domain.StatusActive, StartDate: now, EndDate: now.Add(time.Hour)}
	assert.True(t, item.RedeemableAt(now))
	assert.True(t, item.RedeemableAt(now.Add(time.Hour)))
	assert.False(t, item.RedeemableAt(now.Add(-time.Second)))
	assert.False(t, item.RedeemableAt(now.Add(time.Hour+time.Second)))

	item.Status = domain.StatusInactive
	assert.False(t, item.RedeemableAt(now))
}
