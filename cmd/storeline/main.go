package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/internal/clock"
	"github.com/smallbiznis/storeline/internal/config"
	"github.com/smallbiznis/storeline/internal/migration"
	"github.com/smallbiznis/storeline/internal/observability"
	"github.com/smallbiznis/storeline/internal/server"
	"github.com/smallbiznis/storeline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
