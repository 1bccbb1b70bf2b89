package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-bg-remover/internal/application"
	"telegram-bg-remover/internal/config"
	"telegram-bg-remover/internal/domain/model"
	"telegram-bg-remover/internal/infra/logging"
	"telegram-bg-remover/internal/infra/metrics"
	red "telegram-bg-remover/internal/infra/redis"
	"telegram-bg-remover/internal/infra/worker"
)

// updateSource is the inbound half of tgbotapi.BotAPI.
type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type callbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID string) error
}

type rateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RealTelegramBotAdapter polls updates, fans them out to a worker pool and
// routes each one to the bot facade.
type RealTelegramBotAdapter struct {
	src         updateSource
	answerer    callbackAnswerer
	cfg         *config.BotConfig
	limits      config.RateLimitConfig
	facade      application.BotHandler
	rateLimiter rateLimiter
	pool        *worker.Pool
	log         *zerolog.Logger

	stopOnce sync.Once
}

func NewRealTelegramBotAdapter(
	client *Client,
	cfg *config.Config,
	facade application.BotHandler,
	limiter *red.RateLimiter,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if client == nil {
		return nil, errors.New("telegram client is nil")
	}
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var rl rateLimiter
	if limiter != nil {
		rl = limiter
	}
	return newAdapter(client.API(), client, &cfg.Bot, cfg.RateLimit, facade, rl, logger)
}

func newAdapter(
	src updateSource,
	answerer callbackAnswerer,
	botCfg *config.BotConfig,
	limits config.RateLimitConfig,
	facade application.BotHandler,
	rl rateLimiter,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	l := logger.With().Str("component", "TelegramAdapter").Logger()
	return &RealTelegramBotAdapter{
		src:         src,
		answerer:    answerer,
		cfg:         botCfg,
		limits:      limits,
		facade:      facade,
		rateLimiter: rl,
		pool:        worker.NewPool(botCfg.Workers, &l),
		log:         &l,
	}, nil
}

// StartPolling blocks until ctx is cancelled or the update stream ends.
// Updates already accepted are allowed to finish before it returns.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.PollTimeout
	updates := r.src.GetUpdatesChan(u)

	// in-flight work outlives the polling context so shutdown can drain it
	r.pool.Start(context.WithoutCancel(ctx))
	defer r.pool.Stop()

	r.log.Info().Int("workers", r.cfg.Workers).Msg("polling started")
	for {
		select {
		case <-ctx.Done():
			r.StopPolling()
			r.log.Info().Msg("polling stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if err := r.pool.Submit(ctx, func(tctx context.Context) error {
				return r.dispatch(tctx, up)
			}); err != nil && ctx.Err() == nil {
				r.log.Error().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	r.stopOnce.Do(r.src.StopReceivingUpdates)
}

// dispatch gives each update its own trace id and isolates its failure.
func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, update tgbotapi.Update) error {
	ctx = logging.WithTraceID(ctx, logging.NewTraceID())
	if err := r.handleUpdate(ctx, update); err != nil {
		metrics.IncUpdateError()
		logging.With(ctx, r.log).Error().Err(err).Int("update_id", update.UpdateID).Msg("update handling failed")
		return nil
	}
	return nil
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	// ----- Inline button callbacks -----
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}

	// ----- Regular messages -----
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}
	ctx = logging.WithTgID(ctx, msg.From.ID)
	ctx = logging.WithChatID(ctx, msg.Chat.ID)

	if msg.IsCommand() {
		cmd := msg.Command()
		if fn, ok := r.commandRoutes()[cmd]; ok {
			metrics.IncTelegramCommand("/" + cmd)
			return fn(ctx, msg)
		}
		logging.With(ctx, r.log).Debug().Str("command", cmd).Msg("unknown command")
		return r.facade.HandleUnsupported(ctx, msg.Chat.ID)
	}

	variants := photoVariants(msg)
	if len(variants) == 0 {
		metrics.IncTelegramCommand("message")
		return r.facade.HandleUnsupported(ctx, msg.Chat.ID)
	}

	metrics.IncTelegramCommand("photo")
	if !r.allow(ctx, msg.From.ID, "photo", r.limits.PhotosPerMinute) {
		return r.facade.HandleRateLimited(ctx, msg.Chat.ID)
	}
	return r.facade.HandlePhoto(ctx, model.PhotoRequest{
		ChatID:    msg.Chat.ID,
		UserID:    msg.From.ID,
		MessageID: msg.MessageID,
		Variants:  variants,
	})
}

// photoVariants lists the image resolutions carried by msg: every size of a
// photo, or a single entry for an image sent as a file.
func photoVariants(msg *tgbotapi.Message) []model.PhotoVariant {
	if len(msg.Photo) > 0 {
		out := make([]model.PhotoVariant, 0, len(msg.Photo))
		for _, p := range msg.Photo {
			out = append(out, model.PhotoVariant{FileID: p.FileID, Width: p.Width, Height: p.Height, FileSize: p.FileSize})
		}
		return out
	}
	if d := msg.Document; d != nil && strings.HasPrefix(strings.ToLower(d.MimeType), "image/") {
		v := model.PhotoVariant{FileID: d.FileID, FileSize: d.FileSize}
		if d.Thumbnail != nil {
			v.Width, v.Height = d.Thumbnail.Width, d.Thumbnail.Height
		}
		return []model.PhotoVariant{v}
	}
	return nil
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop telegram spinner when we return
	defer func() {
		if r.answerer == nil {
			return
		}
		if err := r.answerer.AnswerCallback(ctx, query.ID); err != nil {
			r.log.Debug().Err(err).Msg("answer callback")
		}
	}()

	var chatID int64
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	} else {
		chatID = query.From.ID
	}
	if chatID == 0 {
		return nil
	}
	ctx = logging.WithTgID(ctx, query.From.ID)
	ctx = logging.WithChatID(ctx, chatID)

	if err := r.routeCallback(ctx, chatID, query); err != nil {
		return fmt.Errorf("callback %q: %w", query.Data, err)
	}
	return nil
}

// allow applies the per-user fixed window. Redis trouble never blocks users.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, userID int64, action string, limit int) bool {
	if r.rateLimiter == nil || limit <= 0 {
		return true
	}
	ok, err := r.rateLimiter.Allow(ctx, red.UserActionKey(userID, action), limit, time.Minute)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable, allowing")
		return true
	}
	if !ok {
		metrics.IncRateLimitTriggered()
	}
	return ok
}
