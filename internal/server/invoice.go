package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
)

type createOnlineInvoiceRequest struct {
	Lines           []invoicedomain.LineRequest `json:"lines"`
	PaymentMethod   string                      `json:"payment_method"`
	DeliveryAddress string                      `json:"delivery_address"`
}

type createOfflineInvoiceRequest struct {
	Lines         []invoicedomain.LineRequest `json:"lines"`
	PaymentMethod string                      `json:"payment_method"`
	Phone         string                      `json:"phone"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
	Star     int    `json:"star"`
}

type changeAddressRequest struct {
	DeliveryAddress string `json:"delivery_address"`
}

type listInvoicesQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
	OrderType string `form:"order_type"`
	From      string `form:"from"`
	To        string `form:"to"`
}

func (s *Server) CreateOnlineInvoice(c *gin.Context) {
	var req createOnlineInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.CreateOnlineInvoice(c.Request.Context(), invoicedomain.CreateOnlineInvoiceRequest{
		Lines:           req.Lines,
		PaymentMethod:   invoicedomain.PaymentMethod(normalizeEnum(req.PaymentMethod)),
		DeliveryAddress: req.DeliveryAddress,
	}, principalFrom(c).CustomerID())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) CreateOfflineInvoice(c *gin.Context) {
	var req createOfflineInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	p := principalFrom(c)
	if !p.IsEmployee() {
		AbortWithError(c, ErrForbidden)
		return
	}

	item, err := s.invoiceSvc.CreateOfflineInvoice(c.Request.Context(), invoicedomain.CreateOfflineInvoiceRequest{
		Lines:         req.Lines,
		PaymentMethod: invoicedomain.PaymentMethod(normalizeEnum(req.PaymentMethod)),
		Phone:         strings.TrimSpace(req.Phone),
	}, p.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := s.invoiceSvc.GetInvoiceByID(c.Request.Context(), id, principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query listInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	filter := invoicedomain.InvoiceFilter{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	}

	if value := normalizeEnum(query.Status); value != "" {
		status := invoicedomain.Status(value)
		switch status {
		case invoicedomain.StatusPending, invoicedomain.StatusPaid, invoicedomain.StatusCancelled:
			filter.Status = &status
		default:
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
	}

	if value := normalizeEnum(query.OrderType); value != "" {
		orderType := invoicedomain.OrderType(value)
		if !orderType.Valid() {
			AbortWithError(c, newValidationError("order_type", "invalid_order_type", "invalid order_type"))
			return
		}
		filter.OrderType = &orderType
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}
	filter.From, filter.To = from, to

	resp, err := s.invoiceSvc.GetInvoicesByFilter(c.Request.Context(), filter, principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Invoices, "page_info": resp.PageInfo})
}

func (s *Server) ListPendingInvoices(c *gin.Context) {
	items, err := s.invoiceSvc.GetPendingInvoices(c.Request.Context(), principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) ListMyInvoices(c *gin.Context) {
	items, err := s.invoiceSvc.GetInvoicesByCustomer(c.Request.Context(), principalFrom(c).CustomerID())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.UpdateInvoice(c.Request.Context(), id, req, principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := s.invoiceSvc.Cancel(c.Request.Context(), id, principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ProvideInvoiceFeedback(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.ProvideFeedback(c.Request.Context(), id, invoicedomain.FeedbackRequest{
		Feedback: req.Feedback,
		Star:     req.Star,
	}, principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ChangeDeliveryAddress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req changeAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.invoiceSvc.ChangeDeliveryAddress(c.Request.Context(), id, req.DeliveryAddress, principalFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// SetDeliveryStatus binds one route per delivery target.
func (s *Server) SetDeliveryStatus(status invoicedomain.DeliveryStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		item, err := s.invoiceSvc.SetDeliveryStatus(c.Request.Context(), id, status, principalFrom(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": item})
	}
}
