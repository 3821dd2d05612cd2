package loyalty

import "go.uber.org/fx"

var Module = fx.Module("loyalty",
	fx.Provide(NewPolicy),
	fx.Provide(NewLedger),
)
