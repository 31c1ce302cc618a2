package consumption

import (
	"github.com/glowface/pointgate/internal/consumption/repository"
	"github.com/glowface/pointgate/internal/consumption/service"
	"go.uber.org/fx"
)

var Module = fx.Module("consumption",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
