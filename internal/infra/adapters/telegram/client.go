package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-bg-remover/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*Client)(nil)

// maxDownloadBytes is the Bot API ceiling for getFile downloads.
const maxDownloadBytes = 20 << 20

// Client implements the outbound platform port on top of tgbotapi.
type Client struct {
	bot          *tgbotapi.BotAPI
	http         *http.Client
	fileEndpoint string // format: token, file path
}

// NewClient connects with token (verifies it with getMe).
func NewClient(token string, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = debug
	return newClient(bot, tgbotapi.FileEndpoint), nil
}

func newClient(bot *tgbotapi.BotAPI, fileEndpoint string) *Client {
	return &Client{
		bot:          bot,
		http:         &http.Client{Timeout: 60 * time.Second},
		fileEndpoint: fileEndpoint,
	}
}

// API exposes the underlying bot for the update loop.
func (c *Client) API() *tgbotapi.BotAPI { return c.bot }

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo adapter.Upload, caption string, rows [][]adapter.InlineButton) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewPhoto(chatID, tgbotapi.FileReader{Name: photo.Name, Reader: photo.Reader})
	msg.Caption = caption
	if kb, ok := inlineKeyboard(rows); ok {
		msg.ReplyMarkup = kb
	}
	m, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

func (c *Client) SendDocument(ctx context.Context, chatID int64, doc adapter.Upload, caption string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: doc.Name, Reader: doc.Reader})
	msg.Caption = caption
	m, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return m.MessageID, nil
}

func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (c *Client) EditCaption(ctx context.Context, chatID int64, messageID int, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewEditMessageCaption(chatID, messageID, caption))
	return err
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

// AnswerCallback stops the client-side spinner on a pressed button.
func (c *Client) AnswerCallback(ctx context.Context, callbackID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

// DownloadFile resolves fileID with getFile and streams the bytes.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if f.FilePath == "" {
		return nil, fmt.Errorf("get file %s: empty path", fileID)
	}
	url := fmt.Sprintf(c.fileEndpoint, c.bot.Token, f.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// the URL embeds the token
		return nil, fmt.Errorf("download %s: %s", f.FilePath, strings.ReplaceAll(err.Error(), c.bot.Token, "<token>"))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", f.FilePath, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", f.FilePath, err)
	}
	if len(data) > maxDownloadBytes {
		return nil, fmt.Errorf("download %s: file larger than %d bytes", f.FilePath, maxDownloadBytes)
	}
	return data, nil
}

// inlineKeyboard builds callback-data reply markup for rows. A button
// without data falls back to its label.
func inlineKeyboard(rows [][]adapter.InlineButton) (tgbotapi.InlineKeyboardMarkup, bool) {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			data := btn.Data
			if data == "" {
				data = label
			}
			r = append(r, tgbotapi.NewInlineKeyboardButtonData(label, data))
		}
		kbRows = append(kbRows, r)
	}
	if len(kbRows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(kbRows...), true
}
