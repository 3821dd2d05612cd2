package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	invoicedomain "github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"not found", invoicedomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"invalid argument", invoicedomain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_argument"},
		{"conflict", invoicedomain.ErrAmbiguousPhone, http.StatusConflict, "conflict"},
		{"insufficient stock", apperror.New(apperror.KindInsufficientStock, "insufficient_stock"), http.StatusConflict, "insufficient_stock"},
		{"insufficient points", apperror.New(apperror.KindInsufficientPoints, "insufficient_points"), http.StatusConflict, "insufficient_points"},
		{"forbidden", invoicedomain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"unauthorized", invoicedomain.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{"state transition", invoicedomain.ErrAlreadyCancelled, http.StatusConflict, "invalid_state_transition"},
		{"internal kind", apperror.New(apperror.KindInternal, "boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, payload.Type)
		})
	}
}

func TestMapErrorKeepsDetailAndCode(t *testing.T) {
	err := fmt.Errorf("create invoice: %w", apperror.Wrapf(invoicedomain.ErrInvalidQuantity, "line %d", 2))

	status, payload := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_quantity", payload.Code)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "quantity", payload.Errors[0].Field)
		assert.Equal(t, "invalid_quantity", payload.Errors[0].Code)
	}
}

func TestMapErrorInfrastructure(t *testing.T) {
	status, payload := mapError(&pgconn.PgError{Code: "40001"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "concurrent_update", payload.Code)

	status, _ = mapError(gorm.ErrRecordNotFound)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)

	status, payload = mapError(errors.New("pq: relation does not exist"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", payload.Message)
}

func TestMapErrorValidation(t *testing.T) {
	status, payload := mapError(newValidationError("status", "invalid_status", "invalid status"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", payload.Type)
	assert.Equal(t, "status", payload.Errors[0].Field)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(invoicedomain.ErrNotCancellable)
	assert.Equal(t, "invalid_state_transition", typ)
	assert.Equal(t, "invoice_not_cancellable", code)

	typ, _ = classifyErrorForLog(invalidRequestError())
	assert.Equal(t, "validation_error", typ)
}
