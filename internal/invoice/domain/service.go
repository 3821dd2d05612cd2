package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
)

type LineRequest struct {
	SKU               string        `json:"sku"`
	Quantity          int64         `json:"quantity"`
	BatchID           snowflake.ID  `json:"batch_id"`
	ProductID         snowflake.ID  `json:"product_id"`
	IsPointRedemption bool          `json:"is_point_redemption"`
	PointRedemptionID *snowflake.ID `json:"point_redemption_id,omitempty"`
}

type CreateOnlineInvoiceRequest struct {
	Lines           []LineRequest `json:"lines"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	DeliveryAddress string        `json:"delivery_address"`
}

type CreateOfflineInvoiceRequest struct {
	Lines         []LineRequest `json:"lines"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Phone         string        `json:"phone"`
}

// UpdateInvoiceRequest is the staff edit. Nil fields are left unchanged.
// Feedback and Star are rejected here and only exist so the caller learns
// to use the feedback operation.
type UpdateInvoiceRequest struct {
	DeliveryAddress *string          `json:"delivery_address,omitempty"`
	DeliveryStatus  *DeliveryStatus  `json:"delivery_status,omitempty"`
	Discount        *decimal.Decimal `json:"discount,omitempty"`
	PaymentMethod   *PaymentMethod   `json:"payment_method,omitempty"`
	Feedback        *string          `json:"feedback,omitempty"`
	Star            *int             `json:"star,omitempty"`
}

// OnlyDeliveryStatus reports whether the request changes nothing but the
// delivery status.
func (r UpdateInvoiceRequest) OnlyDeliveryStatus() bool {
	return r.DeliveryStatus != nil && r.DeliveryAddress == nil && r.Discount == nil && r.PaymentMethod == nil
}

func (r UpdateInvoiceRequest) Empty() bool {
	return r.DeliveryAddress == nil && r.DeliveryStatus == nil && r.Discount == nil &&
		r.PaymentMethod == nil && r.Feedback == nil && r.Star == nil
}

type FeedbackRequest struct {
	Feedback string `json:"feedback"`
	Star     int    `json:"star"`
}

type InvoiceFilter struct {
	pagination.Pagination
	Status    *Status
	OrderType *OrderType
	From      *time.Time
	To        *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	CreateOnlineInvoice(ctx context.Context, req CreateOnlineInvoiceRequest, customerID *snowflake.ID) (Invoice, error)
	CreateOfflineInvoice(ctx context.Context, req CreateOfflineInvoiceRequest, cashierID snowflake.ID) (Invoice, error)

	GetInvoiceByID(ctx context.Context, id snowflake.ID, p principal.Principal) (Invoice, error)
	GetInvoicesByCustomer(ctx context.Context, customerID *snowflake.ID) ([]Invoice, error)
	GetInvoicesByFilter(ctx context.Context, filter InvoiceFilter, p principal.Principal) (ListInvoiceResponse, error)
	GetPendingInvoices(ctx context.Context, p principal.Principal) ([]Invoice, error)

	UpdateInvoice(ctx context.Context, id snowflake.ID, req UpdateInvoiceRequest, p principal.Principal) (Invoice, error)
	Cancel(ctx context.Context, id snowflake.ID, p principal.Principal) (Invoice, error)
	ProvideFeedback(ctx context.Context, id snowflake.ID, req FeedbackRequest, p principal.Principal) (Invoice, error)
	SetDeliveryStatus(ctx context.Context, id snowflake.ID, status DeliveryStatus, p principal.Principal) (Invoice, error)
	ChangeDeliveryAddress(ctx context.Context, id snowflake.ID, address string, p principal.Principal) (Invoice, error)
}

var (
	ErrNotFound = apperror.New(apperror.KindNotFound, "invoice_not_found")

	ErrLinesRequired         = apperror.New(apperror.KindInvalidArgument, "invoice_lines_required")
	ErrInvalidQuantity       = apperror.New(apperror.KindInvalidArgument, "invalid_quantity")
	ErrInvalidPaymentMethod  = apperror.New(apperror.KindInvalidArgument, "invalid_payment_method")
	ErrAddressRequired       = apperror.New(apperror.KindInvalidArgument, "delivery_address_required")
	ErrAddressTooLong        = apperror.New(apperror.KindInvalidArgument, "delivery_address_too_long")
	ErrPhoneRequired         = apperror.New(apperror.KindInvalidArgument, "phone_required")
	ErrInvalidDiscount       = apperror.New(apperror.KindInvalidArgument, "invalid_discount")
	ErrInvalidDeliveryStatus = apperror.New(apperror.KindInvalidArgument, "invalid_delivery_status")
	ErrFeedbackViaUpdate     = apperror.New(apperror.KindInvalidArgument, "feedback_not_updatable")
	ErrInvalidFeedback       = apperror.New(apperror.KindInvalidArgument, "invalid_feedback")
	ErrInvalidStar           = apperror.New(apperror.KindInvalidArgument, "invalid_star")
	ErrInvalidDateRange      = apperror.New(apperror.KindInvalidArgument, "invalid_date_range")
	ErrInvalidPageToken      = apperror.New(apperror.KindInvalidArgument, "invalid_page_token")
	ErrEmptyUpdate           = apperror.New(apperror.KindInvalidArgument, "empty_update")

	ErrAmbiguousPhone  = apperror.New(apperror.KindConflict, "ambiguous_customer_phone")
	ErrCashierNotFound = apperror.New(apperror.KindNotFound, "cashier_not_found")

	ErrUnauthenticated     = apperror.New(apperror.KindUnauthorized, "authentication_required")
	ErrForbidden           = apperror.New(apperror.KindForbidden, "invoice_access_denied")
	ErrEmployeeNotFound    = apperror.New(apperror.KindForbidden, "employee_not_found")
	ErrStaffOnly           = apperror.New(apperror.KindForbidden, "staff_only")
	ErrOwnerOnly           = apperror.New(apperror.KindForbidden, "invoice_owner_only")
	ErrAnonymousRedemption = apperror.New(apperror.KindForbidden, "anonymous_point_redemption")

	ErrInvalidTransition    = apperror.New(apperror.KindInvalidStateTransition, "invalid_delivery_transition")
	ErrStatusUnchanged      = apperror.New(apperror.KindInvalidStateTransition, "delivery_status_unchanged")
	ErrInvoiceCancelled     = apperror.New(apperror.KindInvalidStateTransition, "invoice_cancelled")
	ErrAlreadyCancelled     = apperror.New(apperror.KindInvalidStateTransition, "invoice_already_cancelled")
	ErrNotCancellable       = apperror.New(apperror.KindInvalidStateTransition, "invoice_not_cancellable")
	ErrInTransitLocked      = apperror.New(apperror.KindInvalidStateTransition, "invoice_in_transit_locked")
	ErrAddressLocked        = apperror.New(apperror.KindInvalidStateTransition, "delivery_address_locked")
	ErrStatusLocked         = apperror.New(apperror.KindInvalidStateTransition, "delivery_status_locked")
	ErrFeedbackNotAllowed   = apperror.New(apperror.KindInvalidStateTransition, "feedback_not_allowed")
	ErrFeedbackAlreadyGiven = apperror.New(apperror.KindInvalidStateTransition, "feedback_already_provided")
)
