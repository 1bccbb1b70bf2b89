package removal

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"telegram-bg-remover/internal/domain/ports/adapter"
)

var _ adapter.BackgroundRemover = (*NoopRemover)(nil)

// NoopRemover implements adapter.BackgroundRemover for local/dev runs.
// It returns the input unchanged (as NRGBA) and logs the call.
type NoopRemover struct {
	log *zerolog.Logger
}

func NewNoopRemover(logger *zerolog.Logger) *NoopRemover {
	l := logger.With().Str("component", "NoopRemover").Logger()
	return &NoopRemover{log: &l}
}

func (n *NoopRemover) Name() string { return "noop" }

func (n *NoopRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.log.Debug().Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("noop removal")
	return imaging.Clone(img), nil
}

func (n *NoopRemover) HealthCheck(ctx context.Context) error { return ctx.Err() }
