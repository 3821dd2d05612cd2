package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
)

type addStockRequest struct {
	Quantity int64 `json:"quantity"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req inventorydomain.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.CreateProduct(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "product.create", "product", resp.ID.String(), map[string]any{
		"name":     resp.Name,
		"discount": resp.Discount.String(),
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CreateVariant(c *gin.Context) {
	var req inventorydomain.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.CreateVariant(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "variant.create", "variant", resp.SKU, map[string]any{
		"product_id": resp.ProductID.String(),
		"price":      resp.Price.String(),
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetVariant(c *gin.Context) {
	resp, err := s.inventorySvc.GetVariant(c.Request.Context(), strings.TrimSpace(c.Param("sku")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReceiveBatch(c *gin.Context) {
	var req inventorydomain.ReceiveBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.inventorySvc.ReceiveBatch(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "batch.receive", "batch", resp.ID.String(), map[string]any{
		"sku":      resp.SKU,
		"quantity": resp.AvailableQuantity,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) AddStock(c *gin.Context) {
	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	batchID := strings.TrimSpace(c.Param("id"))
	resp, err := s.inventorySvc.AddStock(c.Request.Context(), inventorydomain.AddStockRequest{
		BatchID:  batchID,
		Quantity: req.Quantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "batch.add_stock", "batch", batchID, map[string]any{
		"added":     req.Quantity,
		"available": resp.AvailableQuantity,
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
