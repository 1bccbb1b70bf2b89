package application

import (
	"context"
	"io"

	"telegram-bg-remover/internal/domain/model"
)

// ---- small interfaces to decouple the facade from concrete implementations ----
// These describe the minimal surface that the facade needs. Using interfaces
// enables tests to pass in light-weight fakes.

type BackgroundUseCaseIface interface {
	Process(ctx context.Context, raw []byte) (*model.Artifact, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

type TranslatorIface interface {
	T(key string, args ...interface{}) string
}

// BotHandler is what the Telegram adapter calls for each routed update.
type BotHandler interface {
	HandleStart(ctx context.Context, chatID int64) error
	HandleHelp(ctx context.Context, chatID int64) error
	HandleUnsupported(ctx context.Context, chatID int64) error
	HandleRateLimited(ctx context.Context, chatID int64) error
	HandlePhoto(ctx context.Context, req model.PhotoRequest) error
	HandleDownload(ctx context.Context, req model.DownloadRequest) error
}
