package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
)

func (s *Server) ListActiveRedemptions(c *gin.Context) {
	items, err := s.redemptionSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetRedemption(c *gin.Context) {
	item, err := s.redemptionSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) CreateRedemption(c *gin.Context) {
	var req redemptiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.redemptionSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "point_redemption.create", "point_redemption", item.ID.String(), map[string]any{
		"sku":                item.SKU,
		"batch_id":           item.BatchID.String(),
		"points_required":    item.PointsRequired,
		"available_quantity": item.AvailableQuantity,
	})

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) UpdateRedemption(c *gin.Context) {
	var req redemptiondomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	item, err := s.redemptionSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "point_redemption.update", "point_redemption", id, map[string]any{
		"status":             string(item.Status),
		"points_required":    item.PointsRequired,
		"available_quantity": item.AvailableQuantity,
	})

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteRedemption(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.redemptionSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "point_redemption.delete", "point_redemption", id, nil)

	c.Status(http.StatusNoContent)
}
