package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	AuditLog(ctx context.Context, actor principal.Principal, action string, targetType string, targetID string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = apperror.New(apperror.KindInvalidArgument, "invalid_page_token")
	ErrInvalidTimeRange = apperror.New(apperror.KindInvalidArgument, "invalid_time_range")
	ErrInvalidAction    = apperror.New(apperror.KindInvalidArgument, "invalid_action")
)
