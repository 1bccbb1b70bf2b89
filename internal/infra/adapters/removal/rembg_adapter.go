package removal

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/ports/adapter"
)

var _ adapter.BackgroundRemover = (*RembgAdapter)(nil)

// RembgAdapter talks to a self-hosted rembg server (`rembg s`).
//
//	curl -X POST "$BASE_URL/api/remove" -F "file=@photo.jpg" -F "model=u2net" -o out.png
type RembgAdapter struct {
	cli     *http.Client
	baseURL string
	model   string
}

func NewRembgAdapter(baseURL, model string, timeout time.Duration) (*RembgAdapter, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("rembg: empty base url")
	}
	return &RembgAdapter{
		cli:     &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
	}, nil
}

func (r *RembgAdapter) Name() string { return "rembg" }

func (r *RembgAdapter) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if img == nil {
		return nil, domain.ErrInvalidArgument
	}
	out, err := postImage(ctx, r.cli, r.baseURL+"/api/remove", nil, "file", img,
		formField{name: "model", value: r.model})
	if err != nil {
		return nil, fmt.Errorf("rembg: %w", err)
	}
	return out, nil
}

// HealthCheck runs a real removal on a tiny test image.
func (r *RembgAdapter) HealthCheck(ctx context.Context) error {
	if _, err := r.Remove(ctx, healthCheckImage()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemovalUnavailable, err)
	}
	return nil
}
