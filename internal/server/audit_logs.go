package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
	ActorType  string `form:"actor_type"`
	StartAt    string `form:"start_at"`
	EndAt      string `form:"end_at"`
	From       string `form:"from"`
	To         string `form:"to"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startAtValue := strings.TrimSpace(query.StartAt)
	if startAtValue == "" {
		startAtValue = strings.TrimSpace(query.From)
	}
	startAt, err := parseOptionalTime(startAtValue, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_at", "invalid_start_at", "invalid start_at"))
		return
	}

	endAtValue := strings.TrimSpace(query.EndAt)
	if endAtValue == "" {
		endAtValue = strings.TrimSpace(query.To)
	}
	endAt, err := parseOptionalTime(endAtValue, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_at", "invalid_end_at", "invalid end_at"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		Action:     strings.TrimSpace(query.Action),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		ActorType:  strings.TrimSpace(query.ActorType),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}

// auditAction records a successful catalog mutation made through the API.
// Invoice mutations are audited by the invoice service itself.
func (s *Server) auditAction(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(c.Request.Context(), principalFrom(c), action, targetType, targetID, metadata)
}
