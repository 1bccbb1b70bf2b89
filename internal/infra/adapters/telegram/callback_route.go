package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-bg-remover/internal/domain/model"
	"telegram-bg-remover/internal/infra/metrics"
)

type cbHandler func(ctx context.Context, chatID int64, query *tgbotapi.CallbackQuery) error

type prefixCB struct {
	Prefix string
	Fn     cbHandler
}

// Prefix-match callbacks
func (r *RealTelegramBotAdapter) cbPrefixRoutes() []prefixCB {
	return []prefixCB{
		{
			Prefix: model.DownloadPrefix,
			Fn:     r.downloadPrefixCBRoute,
		},
	}
}

func (r *RealTelegramBotAdapter) routeCallback(ctx context.Context, chatID int64, query *tgbotapi.CallbackQuery) error {
	data := strings.TrimSpace(query.Data)
	for _, pr := range r.cbPrefixRoutes() {
		if strings.HasPrefix(data, pr.Prefix) {
			return pr.Fn(ctx, chatID, query)
		}
	}
	r.log.Debug().Str("data", data).Msg("ignoring unknown callback")
	return nil
}

func (r *RealTelegramBotAdapter) downloadPrefixCBRoute(ctx context.Context, chatID int64, query *tgbotapi.CallbackQuery) error {
	metrics.IncTelegramCommand("cb:download")
	if !r.allow(ctx, query.From.ID, "download", r.limits.CallbacksPerMinute) {
		return r.facade.HandleRateLimited(ctx, chatID)
	}

	req := model.DownloadRequest{
		ChatID: chatID,
		UserID: query.From.ID,
		Data:   query.Data,
	}
	if m := query.Message; m != nil {
		req.MessageID = m.MessageID
		req.MessageHasMedia = len(m.Photo) > 0 || m.Document != nil
	}
	return r.facade.HandleDownload(ctx, req)
}
