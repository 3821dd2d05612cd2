package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/db/pagination"
)

const (
	defaultPageSize = 10
	maxPageSize     = 250
)

func (s *Service) GetInvoiceByID(ctx context.Context, id snowflake.ID, p principal.Principal) (domain.Invoice, error) {
	if p.IsAnonymous() {
		return domain.Invoice{}, domain.ErrUnauthenticated
	}

	inv, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if inv == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	if err := s.authorize(ctx, s.db, inv, p); err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) GetInvoicesByCustomer(ctx context.Context, customerID *snowflake.ID) ([]domain.Invoice, error) {
	if customerID == nil || *customerID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	items, err := s.repo.ListByCustomer(ctx, s.db, *customerID)
	if err != nil {
		return nil, err
	}
	return derefInvoices(items), nil
}

// GetInvoicesByFilter lists invoices newest first. Customers only ever see
// their own invoices whatever the filter says.
func (s *Service) GetInvoicesByFilter(ctx context.Context, filter domain.InvoiceFilter, p principal.Principal) (domain.ListInvoiceResponse, error) {
	if p.IsAnonymous() {
		return domain.ListInvoiceResponse{}, domain.ErrUnauthenticated
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidDateRange
	}

	listFilter := domain.ListFilter{
		Status:    filter.Status,
		OrderType: filter.OrderType,
		From:      filter.From,
		To:        filter.To,
	}
	switch {
	case p.IsEmployee():
		if err := s.requireEmployee(ctx, s.db, p); err != nil {
			return domain.ListInvoiceResponse{}, err
		}
	case p.IsCustomer():
		listFilter.CustomerID = p.CustomerID()
	default:
		return domain.ListInvoiceResponse{}, domain.ErrForbidden
	}

	if token := strings.TrimSpace(filter.PageToken); token != "" {
		cursor, err := decodeCursor(token)
		if err != nil {
			return domain.ListInvoiceResponse{}, err
		}
		listFilter.Cursor = cursor
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	listFilter.Limit = pageSize

	items, err := s.repo.List(ctx, s.db, listFilter)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Invoice) string {
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

	resp := domain.ListInvoiceResponse{Invoices: derefInvoices(items)}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

// GetPendingInvoices returns paid invoices still waiting for dispatch.
func (s *Service) GetPendingInvoices(ctx context.Context, p principal.Principal) ([]domain.Invoice, error) {
	if err := requireStaffPrincipal(p); err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, s.db, p); err != nil {
		return nil, err
	}
	items, err := s.repo.ListPending(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return derefInvoices(items), nil
}

func decodeCursor(token string) (*domain.Cursor, error) {
	decoded, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return nil, domain.ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidPageToken
	}
	return &domain.Cursor{ID: id, CreatedAt: createdAt}, nil
}
