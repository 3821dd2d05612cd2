package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/storeline/pkg/apperror"
	pkgdb "github.com/smallbiznis/storeline/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = apperror.New(apperror.KindUnauthorized, "unauthorized")
	ErrForbidden          = apperror.New(apperror.KindForbidden, "forbidden")
	ErrNotFound           = apperror.New(apperror.KindNotFound, "not_found")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    string(apperror.KindInternal),
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    string(apperror.KindNotFound),
			Message: "not found",
		}
	case pkgdb.IsConcurrencyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    string(apperror.KindConflict),
			Code:    "concurrent_update",
			Message: "concurrent update, retry the request",
		}
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorPayload{
			Type:    string(apperror.KindInternal),
			Message: "internal server error",
		}
	}

	status := statusForKind(appErr.Kind)
	if status == http.StatusInternalServerError {
		return status, errorPayload{
			Type:    string(apperror.KindInternal),
			Message: "internal server error",
		}
	}

	payload := errorPayload{
		Type:    string(appErr.Kind),
		Code:    appErr.Code,
		Message: err.Error(),
	}
	if appErr.Kind == apperror.KindInvalidArgument {
		payload.Errors = []ValidationError{{
			Field:   validationErrorField(appErr.Code),
			Code:    appErr.Code,
			Message: err.Error(),
		}}
	}
	return status, payload
}

func statusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInvalidArgument:
		return http.StatusBadRequest
	case apperror.KindConflict,
		apperror.KindInsufficientStock,
		apperror.KindInsufficientPoints,
		apperror.KindInvalidStateTransition:
		return http.StatusConflict
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// classifyErrorForLog feeds the request logger with a stable type/code pair.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if asValidationErrors(err) != nil {
		return "validation_error", "invalid_request"
	}
	if errors.Is(err, ErrRateLimited) {
		return "rate_limited", "rate_limited"
	}
	if pkgdb.IsConcurrencyErr(err) {
		return string(apperror.KindConflict), "concurrent_update"
	}
	return string(apperror.KindOf(err)), apperror.CodeOf(err)
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
