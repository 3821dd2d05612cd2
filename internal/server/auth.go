package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/storeline/internal/auth/domain"
	"github.com/smallbiznis/storeline/internal/principal"
)

type issueDevTokenRequest struct {
	Role       string `json:"role"`
	ID         string `json:"id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// RevokeToken invalidates the bearer token of the current request.
func (s *Server) RevokeToken(c *gin.Context) {
	raw, ok := bearerToken(c)
	if !ok || principalFrom(c).IsAnonymous() {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authSvc.Revoke(c.Request.Context(), raw); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// IssueDevToken mints a token for any principal. Only registered outside
// production.
func (s *Server) IssueDevToken(c *gin.Context) {
	var req issueDevTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	p := principal.Parse(strings.ToLower(strings.TrimSpace(req.Role)), id)
	if p.IsAnonymous() {
		AbortWithError(c, newValidationError("role", "invalid_role", "invalid role"))
		return
	}

	issued, err := s.authSvc.Issue(c.Request.Context(), authdomain.IssueRequest{
		Principal: p,
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": issued})
}
