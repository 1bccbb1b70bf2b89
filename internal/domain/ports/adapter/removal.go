package adapter

import (
	"context"
	"image"
)

// BackgroundRemover makes the background pixels of an image transparent.
// Any error is terminal for the request; implementations do not retry.
type BackgroundRemover interface {
	Name() string
	Remove(ctx context.Context, img image.Image) (image.Image, error)
	// HealthCheck verifies the capability is usable. Called once at startup
	// and by the readiness endpoint.
	HealthCheck(ctx context.Context) error
}
