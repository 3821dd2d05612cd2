package authorization

import (
	"context"

	"github.com/smallbiznis/storeline/internal/principal"
	"github.com/smallbiznis/storeline/pkg/apperror"
)

// Service answers coarse capability questions for a principal. Ownership and
// state checks stay in the domain services.
type Service interface {
	Authorize(ctx context.Context, p principal.Principal, object, action string) error
}

var (
	ErrForbidden     = apperror.New(apperror.KindForbidden, "capability_denied")
	ErrInvalidObject = apperror.New(apperror.KindInvalidArgument, "invalid_authorization_object")
	ErrInvalidAction = apperror.New(apperror.KindInvalidArgument, "invalid_authorization_action")
)
