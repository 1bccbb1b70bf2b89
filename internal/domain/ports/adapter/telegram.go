package adapter

import (
	"context"
	"io"
)

// InlineButton carries callback data back to the bot when pressed.
type InlineButton struct {
	Text string
	Data string
}

// Upload is a file sent to the platform from a stream.
type Upload struct {
	Name   string
	Reader io.Reader
}

// TelegramBotAdapter is the outbound side of the chat platform.
// Send* methods return the id of the message they created.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photo Upload, caption string, rows [][]InlineButton) (int, error)
	SendDocument(ctx context.Context, chatID int64, doc Upload, caption string) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// DownloadFile fetches the raw bytes behind a platform file reference.
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}
