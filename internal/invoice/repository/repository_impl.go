package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, cashier_id, customer_id, discount, payment_method, status, total_amount,
			delivery_address, delivery_status, order_type, is_anonymous, feedback, star,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.CashierID,
		invoice.CustomerID,
		invoice.Discount,
		invoice.PaymentMethod,
		invoice.Status,
		invoice.TotalAmount,
		invoice.DeliveryAddress,
		invoice.DeliveryStatus,
		invoice.OrderType,
		invoice.IsAnonymous,
		invoice.Feedback,
		invoice.Star,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) InsertDetail(ctx context.Context, db *gorm.DB, detail *domain.InvoiceDetail) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_details (
			id, invoice_id, sku, batch_id, quantity, line_total, is_point_redemption,
			point_redemption_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		detail.ID,
		detail.InvoiceID,
		detail.SKU,
		detail.BatchID,
		detail.Quantity,
		detail.LineTotal,
		detail.IsPointRedemption,
		detail.PointRedemptionID,
		detail.CreatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET discount = ?, payment_method = ?, status = ?, total_amount = ?, delivery_address = ?,
		     delivery_status = ?, feedback = ?, star = ?, updated_at = ?
		 WHERE id = ?`,
		invoice.Discount,
		invoice.PaymentMethod,
		invoice.Status,
		invoice.TotalAmount,
		invoice.DeliveryAddress,
		invoice.DeliveryStatus,
		invoice.Feedback,
		invoice.Star,
		invoice.UpdatedAt,
		invoice.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, opts ...option.QueryOption) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).Where("id = ?", id)
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var items []*domain.Invoice
	if err := stmt.Limit(1).Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	if err := r.attachDetails(ctx, db, items); err != nil {
		return nil, err
	}
	return items[0], nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]*domain.Invoice, error) {
	var items []*domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, db, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.CustomerID != nil {
		stmt = stmt.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		stmt = stmt.Where("status = ?", *filter.Status)
	}
	if filter.OrderType != nil {
		stmt = stmt.Where("order_type = ?", *filter.OrderType)
	}
	if filter.From != nil {
		stmt = option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.GTE, Value: filter.From.UTC()}).Apply(stmt)
	}
	if filter.To != nil {
		stmt = option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.LTE, Value: filter.To.UTC()}).Apply(stmt)
	}
	if filter.Cursor != nil {
		stmt = option.Before(filter.Cursor.CreatedAt, int64(filter.Cursor.ID)).Apply(stmt)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var items []*domain.Invoice
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, db, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB) ([]*domain.Invoice, error) {
	var items []*domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("status = ? AND delivery_status = ?", domain.StatusPaid, domain.DeliveryPending).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if err := r.attachDetails(ctx, db, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) attachDetails(ctx context.Context, db *gorm.DB, invoices []*domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

	ids := make([]snowflake.ID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}

	var details []domain.InvoiceDetail
	err := db.WithContext(ctx).
		Model(&domain.InvoiceDetail{}).
		Where("invoice_id IN ?", ids).
		Order("id asc").
		Find(&details).Error
	if err != nil {
		return err
	}

	byInvoice := make(map[snowflake.ID][]domain.InvoiceDetail, len(invoices))
	for _, d := range details {
		byInvoice[d.InvoiceID] = append(byInvoice[d.InvoiceID], d)
	}
	for _, inv := range invoices {
		inv.Details = byInvoice[inv.ID]
		if inv.Details == nil {
			inv.Details = []domain.InvoiceDetail{}
		}
	}
	return nil
}
