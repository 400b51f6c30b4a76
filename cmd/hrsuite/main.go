package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/workstack/hrsuite/internal/clock"
	"github.com/workstack/hrsuite/internal/config"
	"github.com/workstack/hrsuite/internal/locking"
	"github.com/workstack/hrsuite/internal/migration"
	"github.com/workstack/hrsuite/internal/moduleaccess"
	"github.com/workstack/hrsuite/internal/notify"
	"github.com/workstack/hrsuite/internal/observability"
	"github.com/workstack/hrsuite/internal/payment"
	"github.com/workstack/hrsuite/internal/plan"
	"github.com/workstack/hrsuite/internal/providers/email"
	"github.com/workstack/hrsuite/internal/server"
	"github.com/workstack/hrsuite/internal/session"
	"github.com/workstack/hrsuite/internal/subscription"
	"github.com/workstack/hrsuite/internal/tenant"
	"github.com/workstack/hrsuite/internal/tenantdb"
	"github.com/workstack/hrsuite/pkg/db"
	"github.com/workstack/hrsuite/pkg/redis"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redis.Module,
		clock.Module,
		locking.Module,
		session.Module,
		tenantdb.Module,
		email.Module,
		notify.Module,

		// Functional domains
		tenant.Module,
		plan.Module,
		subscription.Module,
		payment.Module,
		moduleaccess.Module,

		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
