package generation

import (
	"github.com/glowface/pointgate/internal/generation/imagestore"
	"go.uber.org/fx"
)

var Module = fx.Module("generation",
	fx.Provide(
		func(c *GeminiClient) Client { return c },
		NewGeminiClient,
		imagestore.New,
	),
)
