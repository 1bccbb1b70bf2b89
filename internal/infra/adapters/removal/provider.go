package removal

import (
	"fmt"

	"github.com/rs/zerolog"

	"telegram-bg-remover/internal/config"
	"telegram-bg-remover/internal/domain/ports/adapter"
)

// New builds the configured provider wrapped with the concurrency/timeout limits.
func New(cfg config.RemovalConfig, logger *zerolog.Logger) (adapter.BackgroundRemover, error) {
	var (
		inner adapter.BackgroundRemover
		err   error
	)
	switch cfg.Provider {
	case "rembg":
		inner, err = NewRembgAdapter(cfg.RembgURL, cfg.RembgModel, 0)
	case "removebg":
		inner, err = NewRemoveBGAdapter(cfg.RemoveBGKey, cfg.RemoveBGURL, 0)
	case "noop":
		inner = NewNoopRemover(logger)
	default:
		return nil, fmt.Errorf("unknown removal provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewLimitedRemover(inner, cfg.ConcurrentLimit, cfg.Timeout), nil
}
