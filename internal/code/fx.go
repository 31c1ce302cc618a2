package code

import (
	"github.com/glowface/pointgate/internal/code/repository"
	"github.com/glowface/pointgate/internal/code/service"
	"go.uber.org/fx"
)

var Module = fx.Module("code",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
