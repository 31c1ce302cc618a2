package generation

import (
	"context"
	"errors"
)

var ErrUpstream = errors.New("generation_upstream_error")

// Client is the boundary to the generation upstream. Callers debit points
// before invoking it and record failures afterwards; the client itself
// carries no billing logic.
type Client interface {
	// SuggestText returns a short creative suggestion for the prompt.
	SuggestText(ctx context.Context, prompt string) (string, error)

	// EditImage applies the prompt to a base64-encoded source image and
	// returns the edited image as a data URL.
	EditImage(ctx context.Context, prompt, imageBase64 string) (string, error)
}
