package main

import (
	"github.com/glowface/pointgate/internal/account"
	"github.com/glowface/pointgate/internal/clock"
	"github.com/glowface/pointgate/internal/code"
	"github.com/glowface/pointgate/internal/config"
	"github.com/glowface/pointgate/internal/consumption"
	"github.com/glowface/pointgate/internal/generation"
	"github.com/glowface/pointgate/internal/identity"
	"github.com/glowface/pointgate/internal/migration"
	"github.com/glowface/pointgate/internal/observability"
	"github.com/glowface/pointgate/internal/ratelimit"
	"github.com/glowface/pointgate/internal/redemption"
	"github.com/glowface/pointgate/internal/seed"
	"github.com/glowface/pointgate/internal/server"
	"github.com/glowface/pointgate/pkg/db"
	"github.com/glowface/pointgate/pkg/id"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		id.Module,
		db.Module,
		migration.Module,
		code.Module,
		account.Module,
		redemption.Module,
		consumption.Module,
		identity.Module,
		generation.Module,
		ratelimit.Module,
		seed.Module,
		server.Module,
	).Run()
}
