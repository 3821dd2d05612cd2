package employee

import (
	"github.com/smallbiznis/storeline/internal/employee/repository"
	"github.com/smallbiznis/storeline/internal/employee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("employee.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
