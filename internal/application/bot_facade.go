package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/model"
	"telegram-bg-remover/internal/domain/ports/adapter"
	derror "telegram-bg-remover/internal/error"
	"telegram-bg-remover/internal/infra/i18n"
	"telegram-bg-remover/internal/infra/logging"
	"telegram-bg-remover/internal/infra/metrics"
)

var _ BotHandler = (*BotFacade)(nil)

// BotFacade wires platform events to the background pipeline: photo in,
// preview with a download button out, and the stored PNG on button press.
type BotFacade struct {
	bot       adapter.TelegramBotAdapter
	bgUC      BackgroundUseCaseIface
	tr        TranslatorIface
	watermark string
	log       *zerolog.Logger
}

func NewBotFacade(
	bot adapter.TelegramBotAdapter,
	bgUC BackgroundUseCaseIface,
	tr TranslatorIface,
	watermarkText string,
	logger *zerolog.Logger,
) *BotFacade {
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{bot: bot, bgUC: bgUC, tr: tr, watermark: watermarkText, log: &l}
}

func (b *BotFacade) HandleStart(ctx context.Context, chatID int64) error {
	_, err := b.bot.SendMessage(ctx, chatID, b.tr.T(i18n.KeyStart, b.watermark))
	return err
}

func (b *BotFacade) HandleHelp(ctx context.Context, chatID int64) error {
	_, err := b.bot.SendMessage(ctx, chatID, b.tr.T(i18n.KeyHelp))
	return err
}

// HandleUnsupported answers any message that carries no usable image.
func (b *BotFacade) HandleUnsupported(ctx context.Context, chatID int64) error {
	_, err := b.bot.SendMessage(ctx, chatID, b.tr.T(i18n.KeyNotImage))
	return err
}

func (b *BotFacade) HandleRateLimited(ctx context.Context, chatID int64) error {
	_, err := b.bot.SendMessage(ctx, chatID, b.tr.T(i18n.KeyRateLimited))
	return err
}

// HandlePhoto runs the full photo flow. Whatever fails between fetching the
// file and sending the preview, the user gets the interim notice removed and
// exactly one generic failure message. The error is only returned when even
// that message could not be sent.
func (b *BotFacade) HandlePhoto(ctx context.Context, req model.PhotoRequest) error {
	variant, ok := model.SelectLargest(req.Variants)
	if !ok {
		return b.HandleUnsupported(ctx, req.ChatID)
	}
	metrics.IncPhotoReceived()
	log := logging.With(ctx, b.log)

	noticeID, err := b.bot.SendMessage(ctx, req.ChatID, b.tr.T(i18n.KeyProcessing))
	if err != nil {
		log.Warn().Err(err).Msg("interim notice not sent")
		noticeID = 0
	}

	art, err := b.prepare(ctx, variant)
	b.dropNotice(ctx, req.ChatID, noticeID)
	if err == nil {
		err = b.deliver(ctx, req.ChatID, art)
	}
	if err == nil {
		log.Info().Str("artifact_id", art.ID).Int("width", art.Width).Int("height", art.Height).Msg("photo processed")
		return nil
	}

	stage := derror.StageOf(err)
	metrics.IncProcessingFailure(string(stage))
	log.Error().Err(err).Str("stage", string(stage)).Str("file_id", variant.FileID).Msg("photo processing failed")

	if _, serr := b.bot.SendMessage(ctx, req.ChatID, b.tr.T(i18n.KeyProcessingFailed)); serr != nil {
		return fmt.Errorf("report failure: %w", serr)
	}
	return nil
}

func (b *BotFacade) prepare(ctx context.Context, variant model.PhotoVariant) (*model.Artifact, error) {
	start := time.Now()
	raw, err := b.bot.DownloadFile(ctx, variant.FileID)
	metrics.ObserveStage(string(derror.StageFetch), start, err == nil)
	if err != nil {
		return nil, derror.Wrap(derror.StageFetch, err)
	}
	return b.bgUC.Process(ctx, raw)
}

func (b *BotFacade) deliver(ctx context.Context, chatID int64, art *model.Artifact) error {
	start := time.Now()
	err := b.sendPreview(ctx, chatID, art)
	metrics.ObserveStage(string(derror.StageDeliver), start, err == nil)
	return derror.Wrap(derror.StageDeliver, err)
}

func (b *BotFacade) sendPreview(ctx context.Context, chatID int64, art *model.Artifact) error {
	rc, err := b.bgUC.Open(ctx, art.ID)
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()

	rows := [][]adapter.InlineButton{
		{{Text: b.tr.T(i18n.KeyDownloadButton), Data: art.DownloadPayload()}},
	}
	_, err = b.bot.SendPhoto(ctx, chatID,
		adapter.Upload{Name: model.DocumentFileName, Reader: rc},
		b.tr.T(i18n.KeyPreviewCaption), rows)
	return err
}

func (b *BotFacade) dropNotice(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.bot.DeleteMessage(ctx, chatID, messageID); err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Int("message_id", messageID).Msg("interim notice not deleted")
	}
}

// HandleDownload sends the stored artifact named by the button payload as a
// document. Unknown, malformed or removed ids edit the originating message
// to a "no longer available" notice instead. Any other failure gets the
// generic failure reply, so every press is answered; the error is only
// returned when that reply could not be sent either.
func (b *BotFacade) HandleDownload(ctx context.Context, req model.DownloadRequest) error {
	log := logging.With(ctx, b.log)

	id, ok := model.ParseDownloadPayload(req.Data)
	if !ok {
		metrics.IncDownload("missing")
		return b.notAvailable(ctx, req)
	}

	rc, err := b.bgUC.Open(ctx, id)
	if errors.Is(err, domain.ErrArtifactNotFound) {
		metrics.IncDownload("missing")
		log.Info().Str("artifact_id", id).Msg("download of unknown artifact")
		return b.notAvailable(ctx, req)
	}
	if err != nil {
		return b.downloadFailed(ctx, req.ChatID, fmt.Errorf("open artifact %s: %w", id, err))
	}
	defer func() {
		_ = rc.Close()
	}()

	if _, err := b.bot.SendDocument(ctx, req.ChatID,
		adapter.Upload{Name: model.DocumentFileName, Reader: rc},
		b.tr.T(i18n.KeyDocumentCaption)); err != nil {
		return b.downloadFailed(ctx, req.ChatID, fmt.Errorf("send document %s: %w", id, err))
	}
	metrics.IncDownload("sent")
	return nil
}

func (b *BotFacade) downloadFailed(ctx context.Context, chatID int64, cause error) error {
	metrics.IncDownload("error")
	logging.With(ctx, b.log).Error().Err(cause).Msg("download failed")
	if _, err := b.bot.SendMessage(ctx, chatID, b.tr.T(i18n.KeyProcessingFailed)); err != nil {
		return fmt.Errorf("report download failure: %w (after %v)", err, cause)
	}
	return nil
}

// notAvailable edits the message that carried the button. Photo messages
// have a caption rather than text, so the caption is edited there.
func (b *BotFacade) notAvailable(ctx context.Context, req model.DownloadRequest) error {
	text := b.tr.T(i18n.KeyNotAvailable)
	if req.MessageID == 0 {
		_, err := b.bot.SendMessage(ctx, req.ChatID, text)
		return err
	}
	if req.MessageHasMedia {
		return b.bot.EditCaption(ctx, req.ChatID, req.MessageID, text)
	}
	return b.bot.EditText(ctx, req.ChatID, req.MessageID, text)
}
