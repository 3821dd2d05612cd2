package auth

import (
	"github.com/smallbiznis/storeline/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(service.NewRevocationStore),
	fx.Provide(service.New),
)
