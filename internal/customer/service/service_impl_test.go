package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/customer/domain"
	"github.com/smallbiznis/storeline/internal/customer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Customer{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)), Repo: repository.Provide()})
	return svc.(*Service), db
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: " Ana ", Phone: "0811", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, int64(0), created.Points)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "0811", got.Phone)
}

func TestCreateRejectsDuplicatePhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana", Phone: "0811"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Bo", Phone: "0811"})
	assert.ErrorIs(t, err, domain.ErrPhoneTaken)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Phone: "0811"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana", Phone: "1", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestGetByIDErrors(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.GetByID(context.Background(), "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustPointsNeverNegative(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "Ana", Phone: "0811"})
	require.NoError(t, err)

	repo := repository.Provide()
	ok, err := repo.AdjustPoints(ctx, db, created.ID, 10, created.CreatedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AdjustPoints(ctx, db, created.ID, -11, created.CreatedAt)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.AdjustPoints(ctx, db, created.ID, -10, created.CreatedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.FindByID(ctx, db, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Points)
}
