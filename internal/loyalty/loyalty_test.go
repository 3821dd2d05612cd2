package loyalty

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storeline/internal/config"
	"github.com/smallbiznis/storeline/internal/clock"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	customerrepo "github.com/smallbiznis/storeline/internal/customer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDivisorPolicy(t *testing.T) {
	policy := NewPolicy(config.NewStaticPolicyHolder(config.DefaultPolicy()))

	tests := []struct {
		total string
		want  int64
	}{
		{"200", 0},
		{"999.99", 0},
		{"1000", 1},
		{"2500.50", 2},
		{"0", 0},
		{"-5000", 0},
	}
	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.PointsEarned(decimal.RequireFromString(tt.total)))
		})
	}
}

func TestDivisorPolicyUsesConfiguredDivisor(t *testing.T) {
	cfg := config.DefaultPolicy()
	cfg.PointsDivisor = 100
	policy := NewPolicy(config.NewStaticPolicyHolder(cfg))
	assert.Equal(t, int64(2), policy.PointsEarned(decimal.NewFromInt(250)))
}

func newLedgerDB(t *testing.T) (*gorm.DB, *Ledger, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&customerdomain.Customer{}, &PointEntry{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, NewLedger(LedgerParams{GenID: node, Clock: clock.NewFakeClock(ledgerNow), Customers: customerrepo.Provide()}), node
}

var ledgerNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func seedCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node, points int64) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	c := customerdomain.Customer{ID: node.Generate(), Name: "c", Phone: "1", Points: points, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(&c).Error)
	return c.ID
}

func TestLedgerEarnAndSpend(t *testing.T) {
	db, ledger, node := newLedgerDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, node, 10)
	invoiceID := node.Generate()

	require.NoError(t, ledger.Earn(ctx, db, customerID, invoiceID, 5))
	balance, err := ledger.Balance(ctx, db, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance)

	require.NoError(t, ledger.Spend(ctx, db, customerID, invoiceID, 15))
	balance, err = ledger.Balance(ctx, db, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	entries, err := ledger.Entries(ctx, db, customerID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ReasonEarn, entries[0].Reason)
	assert.Equal(t, int64(-15), entries[1].Delta)
	for _, e := range entries {
		assert.True(t, e.CreatedAt.Equal(ledgerNow))
	}
}

func TestLedgerSpendRejectsOverdraft(t *testing.T) {
	db, ledger, node := newLedgerDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, node, 10)

	err := ledger.Spend(ctx, db, customerID, node.Generate(), 50)
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	balance, err := ledger.Balance(ctx, db, customerID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	entries, err := ledger.Entries(ctx, db, customerID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedgerUnknownCustomer(t *testing.T) {
	db, ledger, node := newLedgerDB(t)
	ctx := context.Background()

	_, err := ledger.Balance(ctx, db, node.Generate())
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)

	err = ledger.Earn(ctx, db, node.Generate(), node.Generate(), 3)
	assert.ErrorIs(t, err, customerdomain.ErrNotFound)
}

func TestLedgerZeroAndNegative(t *testing.T) {
	db, ledger, node := newLedgerDB(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db, node, 0)

	assert.NoError(t, ledger.Earn(ctx, db, customerID, node.Generate(), 0))
	assert.ErrorIs(t, ledger.Spend(ctx, db, customerID, node.Generate(), -1), ErrInvalidPoints)
}
