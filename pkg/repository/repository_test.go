package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type shelf struct {
	ID    int64 `gorm:"primaryKey"`
	Aisle string
	Slots int
}

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&shelf{}))
	return db
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	require.NoError(t, Insert(ctx, db, &shelf{ID: 1, Aisle: "A", Slots: 4}))

	got, err := FindOne(ctx, db, &shelf{ID: 1})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A", got.Aisle)

	missing, err := FindOne(ctx, db, &shelf{ID: 2})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindAppliesOptions(t *testing.T) {
	ctx := context.Background()
	db := newDB(t)
	for i, slots := range []int{1, 5, 9} {
		require.NoError(t, Insert(ctx, db, &shelf{ID: int64(i + 1), Aisle: "B", Slots: slots}))
	}

	rows, err := Find(ctx, db, &shelf{Aisle: "B"},
		option.ApplyOperator(option.Condition{Field: "slots", Operator: option.GTE, Value: 5}),
	)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
