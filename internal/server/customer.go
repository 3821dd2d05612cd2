package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
)

type createCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (s *Server) CreateCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.customerSvc.Create(c.Request.Context(), customerdomain.CreateCustomerRequest{
		Name:  strings.TrimSpace(req.Name),
		Phone: strings.TrimSpace(req.Phone),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditAction(c, "customer.create", "customer", resp.ID.String(), map[string]any{
		"customer_id": resp.ID.String(),
		"name":        resp.Name,
	})

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	resp, err := s.customerSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetMe returns the calling customer with the current point balance.
func (s *Server) GetMe(c *gin.Context) {
	p := principalFrom(c)
	if p.IsAnonymous() {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !p.IsCustomer() {
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": p.ID.String(), "role": p.Kind}})
		return
	}

	resp, err := s.customerSvc.GetByID(c.Request.Context(), p.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
