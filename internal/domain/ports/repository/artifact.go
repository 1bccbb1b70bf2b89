package repository

import (
	"context"
	"image"
	"io"
	"time"
)

// ArtifactStore persists processed images under fresh identifiers.
// It is append-only from the request path: Put never overwrites, and there is
// no delete; old artifacts are only removed by Sweep.
type ArtifactStore interface {
	Put(ctx context.Context, img image.Image) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// ArtifactSweeper removes artifacts older than a retention window.
type ArtifactSweeper interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}
