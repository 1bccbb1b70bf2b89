package removal

import (
	"context"
	"image"
	"time"

	"telegram-bg-remover/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.BackgroundRemover = (*limitedRemover)(nil)

type limitedRemover struct {
	inner   adapter.BackgroundRemover
	sem     chan struct{}
	timeout time.Duration
}

// NewLimitedRemover caps concurrent Remove calls at maxConcurrent and bounds
// each call by timeout. Zero values disable the respective limit.
func NewLimitedRemover(inner adapter.BackgroundRemover, maxConcurrent int, timeout time.Duration) adapter.BackgroundRemover {
	if maxConcurrent <= 0 && timeout <= 0 {
		return inner
	}
	l := &limitedRemover{inner: inner, timeout: timeout}
	if maxConcurrent > 0 {
		l.sem = make(chan struct{}, maxConcurrent)
	}
	return l
}

func (l *limitedRemover) Name() string { return l.inner.Name() }

func (l *limitedRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if l.sem != nil {
		select {
		case l.sem <- struct{}{}:
			defer func() { <-l.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return l.inner.Remove(ctx, img)
}

func (l *limitedRemover) HealthCheck(ctx context.Context) error {
	return l.inner.HealthCheck(ctx)
}
