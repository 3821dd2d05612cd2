package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/internal/audit/masking"
	obscontext "github.com/smallbiznis/storeline/internal/observability/context"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) AuditLog(ctx context.Context, actor principal.Principal, action string, targetType string, targetID string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType = strings.TrimSpace(targetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType, actorID := resolveActor(ctx, actor)
	ipAddress := obscontext.IPAddressFromContext(ctx)
	userAgent := obscontext.UserAgentFromContext(ctx)

	payload := map[string]any{}
	for key, value := range masking.MaskJSON(metadata) {
		payload[key] = value
	}
	if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  actorType,
		ActorID:    normalizePointer(&actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   normalizePointer(&targetID),
		Metadata:   datatypes.JSONMap(payload),
		CreatedAt:  time.Now().UTC(),
	}
	if ipAddress != "" {
		entry.IPAddress = &ipAddress
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}

	var cursor *auditdomain.AuditCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidPageToken
		}
		cursor = &auditdomain.AuditCursor{
			ID:        id,
			CreatedAt: createdAt,
		}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorType:  req.ActorType,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Cursor:     cursor,
		Limit:      pageSize,
	})
	if err != nil {
		return auditdomain.ListAuditLogResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *auditdomain.AuditLog) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	logs := make([]auditdomain.AuditLog, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		logs = append(logs, *item)
	}

	resp := auditdomain.ListAuditLogResponse{AuditLogs: logs}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// resolveActor prefers the principal and falls back to the actor stamped on
// the request context, then to system.
func resolveActor(ctx context.Context, actor principal.Principal) (string, string) {
	if !actor.IsAnonymous() {
		return string(actor.Kind), actor.ID.String()
	}
	if ctxType, ctxID := obscontext.ActorFromContext(ctx); ctxType != "" {
		return ctxType, ctxID
	}
	if actor.Kind == principal.KindAnonymous {
		return string(auditdomain.ActorTypeAnonymous), ""
	}
	return string(auditdomain.ActorTypeSystem), ""
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
