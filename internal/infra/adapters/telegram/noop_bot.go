package telegram

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"telegram-bg-remover/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// Call is one outbound platform call recorded by NoopBotAdapter.
type Call struct {
	Kind      string // message | photo | document | edit_text | edit_caption | delete
	ChatID    int64
	MessageID int
	Text      string
	FileName  string
	Body      []byte
	Rows      [][]adapter.InlineButton
}

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev runs and
// tests. It logs and records every call instead of talking to Telegram, and
// serves DownloadFile from an in-memory file map.
type NoopBotAdapter struct {
	log *zerolog.Logger

	mu     sync.Mutex
	nextID int
	files  map[string][]byte
	calls  []Call
	fail   map[string]error
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "NoopBot").Logger()
	return &NoopBotAdapter{log: &l, nextID: 100, files: map[string][]byte{}, fail: map[string]error{}}
}

// AddFile makes data downloadable under fileID.
func (b *NoopBotAdapter) AddFile(fileID string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[fileID] = data
}

// FailOn makes every call of kind (or "download") return err. A nil err clears it.
func (b *NoopBotAdapter) FailOn(kind string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, kind)
		return
	}
	b.fail[kind] = err
}

// Calls returns the recorded calls, optionally filtered by kind.
func (b *NoopBotAdapter) Calls(kinds ...string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, 0, len(b.calls))
	for _, c := range b.calls {
		if len(kinds) == 0 {
			out = append(out, c)
			continue
		}
		for _, k := range kinds {
			if c.Kind == k {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func (b *NoopBotAdapter) record(ctx context.Context, c Call, body io.Reader) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if body != nil {
		data, err := io.ReadAll(body)
		if err != nil {
			return 0, fmt.Errorf("read upload: %w", err)
		}
		c.Body = data
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail[c.Kind]; err != nil {
		return 0, err
	}
	if c.MessageID == 0 {
		b.nextID++
		c.MessageID = b.nextID
	}
	b.calls = append(b.calls, c)
	b.log.Info().
		Str("kind", c.Kind).
		Int64("chat_id", c.ChatID).
		Int("message_id", c.MessageID).
		Str("text", c.Text).
		Int("bytes", len(c.Body)).
		Msg("noop telegram call")
	return c.MessageID, nil
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	return b.record(ctx, Call{Kind: "message", ChatID: chatID, Text: text}, nil)
}

func (b *NoopBotAdapter) SendPhoto(ctx context.Context, chatID int64, photo adapter.Upload, caption string, rows [][]adapter.InlineButton) (int, error) {
	return b.record(ctx, Call{Kind: "photo", ChatID: chatID, Text: caption, FileName: photo.Name, Rows: rows}, photo.Reader)
}

func (b *NoopBotAdapter) SendDocument(ctx context.Context, chatID int64, doc adapter.Upload, caption string) (int, error) {
	return b.record(ctx, Call{Kind: "document", ChatID: chatID, Text: caption, FileName: doc.Name}, doc.Reader)
}

func (b *NoopBotAdapter) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	_, err := b.record(ctx, Call{Kind: "edit_text", ChatID: chatID, MessageID: messageID, Text: text}, nil)
	return err
}

func (b *NoopBotAdapter) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	_, err := b.record(ctx, Call{Kind: "edit_caption", ChatID: chatID, MessageID: messageID, Text: caption}, nil)
	return err
}

func (b *NoopBotAdapter) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := b.record(ctx, Call{Kind: "delete", ChatID: chatID, MessageID: messageID}, nil)
	return err
}

func (b *NoopBotAdapter) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail["download"]; err != nil {
		return nil, err
	}
	data, ok := b.files[fileID]
	if !ok {
		return nil, fmt.Errorf("noop telegram: unknown file %q", fileID)
	}
	return data, nil
}
