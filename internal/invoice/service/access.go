package service

import (
	"context"

	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/principal"
	"gorm.io/gorm"
)

// authorize gates every read and write of a specific invoice.
// Employees must resolve to an employee record. Customers only reach their
// own invoices and never an anonymous one.
func (s *Service) authorize(ctx context.Context, db *gorm.DB, inv *domain.Invoice, p principal.Principal) error {
	switch {
	case p.IsAnonymous():
		return domain.ErrUnauthenticated
	case p.IsEmployee():
		return s.requireEmployee(ctx, db, p)
	case p.IsCustomer():
		if !ownedBy(inv, p) {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}

func (s *Service) requireEmployee(ctx context.Context, db *gorm.DB, p principal.Principal) error {
	if err := requireStaffPrincipal(p); err != nil {
		return err
	}
	employee, err := s.employees.FindByID(ctx, db, p.ID)
	if err != nil {
		return err
	}
	if employee == nil {
		return domain.ErrEmployeeNotFound
	}
	return nil
}

// requireStaffPrincipal is the cheap role check done before any read.
func requireStaffPrincipal(p principal.Principal) error {
	if p.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	if !p.IsEmployee() {
		return domain.ErrStaffOnly
	}
	return nil
}

func requireOwner(inv *domain.Invoice, p principal.Principal) error {
	if p.IsAnonymous() {
		return domain.ErrUnauthenticated
	}
	if !p.IsCustomer() {
		return domain.ErrOwnerOnly
	}
	if !ownedBy(inv, p) {
		return domain.ErrForbidden
	}
	return nil
}

func ownedBy(inv *domain.Invoice, p principal.Principal) bool {
	if inv.IsAnonymous || inv.CustomerID == nil {
		return false
	}
	return *inv.CustomerID == p.ID
}
