package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/events"
	"github.com/smallbiznis/opsdesk/internal/invoice"
	"github.com/smallbiznis/opsdesk/internal/invoiceform"
	"github.com/smallbiznis/opsdesk/internal/migration"
	"github.com/smallbiznis/opsdesk/internal/observability"
	"github.com/smallbiznis/opsdesk/internal/preference"
	"github.com/smallbiznis/opsdesk/internal/server"
	"github.com/smallbiznis/opsdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.NodeID)
		}),
		clock.Module,
		db.Module,
		migration.Module,
		events.Module,
		invoice.Module,
		invoiceform.Module,
		preference.Module,
		server.Module,
	)
	app.Run()
}
