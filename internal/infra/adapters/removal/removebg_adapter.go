package removal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/ports/adapter"
)

var _ adapter.BackgroundRemover = (*RemoveBGAdapter)(nil)

// RemoveBGAdapter calls the remove.bg cloud API.
type RemoveBGAdapter struct {
	cli    *http.Client
	url    string
	apiKey string
}

func NewRemoveBGAdapter(apiKey, url string, timeout time.Duration) (*RemoveBGAdapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("removebg: empty api key")
	}
	if url == "" {
		url = "https://api.remove.bg/v1.0/removebg"
	}
	return &RemoveBGAdapter{cli: &http.Client{Timeout: timeout}, url: url, apiKey: apiKey}, nil
}

func (r *RemoveBGAdapter) Name() string { return "removebg" }

func (r *RemoveBGAdapter) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if img == nil {
		return nil, domain.ErrInvalidArgument
	}
	h := http.Header{}
	h.Set("X-Api-Key", r.apiKey)
	h.Set("Accept", "image/png")
	out, err := postImage(ctx, r.cli, r.url, h, "image_file", img,
		formField{name: "size", value: "auto"},
		formField{name: "format", value: "png"},
	)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			if msg := apiErrorTitle(se.Body); msg != "" {
				se.Body = msg
			}
		}
		return nil, fmt.Errorf("removebg: %w", err)
	}
	return out, nil
}

// HealthCheck queries the account endpoint, which validates the key without
// spending credits.
func (r *RemoveBGAdapter) HealthCheck(ctx context.Context) error {
	accountURL := strings.TrimSuffix(r.url, "/removebg") + "/account"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, accountURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemovalUnavailable, err)
	}
	req.Header.Set("X-Api-Key", r.apiKey)
	resp, err := r.cli.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRemovalUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: account check returned %d", domain.ErrRemovalUnavailable, resp.StatusCode)
	}
	return nil
}

// apiErrorTitle pulls the first error title out of a remove.bg error body.
func apiErrorTitle(body string) string {
	var payload struct {
		Errors []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil || len(payload.Errors) == 0 {
		return ""
	}
	return payload.Errors[0].Title
}
