package domain

import (
	"context"

	"github.com/smallbiznis/storeline/pkg/apperror"
)

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
}

var (
	ErrInvalidName  = apperror.New(apperror.KindInvalidArgument, "invalid_name")
	ErrInvalidPhone = apperror.New(apperror.KindInvalidArgument, "invalid_phone")
	ErrInvalidEmail = apperror.New(apperror.KindInvalidArgument, "invalid_email")
	ErrInvalidID    = apperror.New(apperror.KindInvalidArgument, "invalid_id")
	ErrPhoneTaken   = apperror.New(apperror.KindConflict, "phone_already_registered")
	ErrNotFound     = apperror.New(apperror.KindNotFound, "customer_not_found")
)
