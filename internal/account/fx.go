package account

import (
	"github.com/glowface/pointgate/internal/account/repository"
	"github.com/glowface/pointgate/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
