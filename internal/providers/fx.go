package providers

import (
	"github.com/smallbiznis/storeline/internal/providers/email"
	"github.com/smallbiznis/storeline/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
