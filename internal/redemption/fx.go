package redemption

import (
	"github.com/glowface/pointgate/internal/redemption/repository"
	"github.com/glowface/pointgate/internal/redemption/service"
	"go.uber.org/fx"
)

var Module = fx.Module("redemption",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
