package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/internal/audit/repository"
	obscontext "github.com/smallbiznis/storeline/internal/observability/context"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Repo: repository.Provide()}).(*Service)
}

func TestAuditLogRecordsActorAndRequest(t *testing.T) {
	svc := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithClient(ctx, "10.0.0.1", "test-agent")

	err := svc.AuditLog(ctx, principal.Staff(42), auditdomain.ActionInvoiceCancelled, auditdomain.TargetTypeInvoice, "99", map[string]any{
		"phone":  "081122333344",
		"status": "CANCELLED",
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: auditdomain.ActionInvoiceCancelled})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "staff", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "99", *entry.TargetID)
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.Equal(t, "****3344", entry.Metadata["phone"])
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
}

func TestAuditLogAnonymousActor(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.AuditLog(context.Background(), principal.Anonymous(), auditdomain.ActionInvoiceCreated, auditdomain.TargetTypeInvoice, "1", nil))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "anonymous", resp.AuditLogs[0].ActorType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc := newTestService(t)
	err := svc.AuditLog(context.Background(), principal.Anonymous(), " ", "invoice", "1", nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginatesAndValidates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AuditLog(ctx, principal.Manager(1), auditdomain.ActionInvoiceUpdated, auditdomain.TargetTypeInvoice, fmt.Sprint(i), nil))
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextPageToken)

	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	start := time.Now()
	end := start.Add(-time.Hour)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
