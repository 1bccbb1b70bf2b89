// Command demo runs the photo pipeline end to end against an in-memory chat
// platform: one photo in, one preview out, then the download button pressed.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"

	"telegram-bg-remover/internal/application"
	"telegram-bg-remover/internal/config"
	"telegram-bg-remover/internal/domain/model"
	"telegram-bg-remover/internal/infra/adapters/removal"
	tele "telegram-bg-remover/internal/infra/adapters/telegram"
	"telegram-bg-remover/internal/infra/i18n"
	"telegram-bg-remover/internal/infra/logging"
	"telegram-bg-remover/internal/infra/storage"
	"telegram-bg-remover/internal/infra/watermark"
	"telegram-bg-remover/internal/usecase"
)

func main() {
	in := flag.String("in", "", "input image")
	out := flag.String("out", "background_removed.png", "where to write the downloaded document")
	rembgURL := flag.String("rembg", "", "rembg server URL; empty uses the noop remover")
	text := flag.String("watermark", config.DefaultWatermarkText, "watermark text")
	flag.Parse()

	logger := logging.New(config.LogConfig{Level: "debug", Format: "console"}, true)
	if *in == "" {
		logger.Fatal().Msg("-in is required")
	}

	raw, err := os.ReadFile(*in)
	if err != nil {
		logger.Fatal().Err(err).Msg("read input")
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		logger.Fatal().Err(err).Msg("decode input")
	}

	rc := config.RemovalConfig{Provider: "noop", Timeout: time.Minute}
	if *rembgURL != "" {
		rc = config.RemovalConfig{Provider: "rembg", RembgURL: *rembgURL, Timeout: time.Minute}
	}
	remover, err := removal.New(rc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("removal")
	}

	store, err := storage.NewFSArtifactStore(afero.NewMemMapFs(), "temp")
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}

	bot := tele.NewNoopBotAdapter(logger)
	bot.AddFile("demo-photo", raw)

	stamper := watermark.NewStamper(afero.NewOsFs(), nil, logger)
	uc := usecase.NewBackgroundUseCase(remover, stamper, store, *text, 4096, logger)
	facade := application.NewBotFacade(bot, uc, tr, *text, logger)

	ctx := context.Background()
	const chatID, userID = 1, 1
	b := img.Bounds()
	if err := facade.HandlePhoto(ctx, model.PhotoRequest{
		ChatID:    chatID,
		UserID:    userID,
		MessageID: 1,
		Variants:  []model.PhotoVariant{{FileID: "demo-photo", Width: b.Dx(), Height: b.Dy(), FileSize: len(raw)}},
	}); err != nil {
		logger.Fatal().Err(err).Msg("handle photo")
	}

	previews := bot.Calls("photo")
	if len(previews) == 0 {
		for _, c := range bot.Calls("message") {
			fmt.Println(c.Text)
		}
		os.Exit(1)
	}
	preview := previews[len(previews)-1]

	if err := facade.HandleDownload(ctx, model.DownloadRequest{
		ChatID:          chatID,
		UserID:          userID,
		MessageID:       preview.MessageID,
		MessageHasMedia: true,
		Data:            preview.Rows[0][0].Data,
	}); err != nil {
		logger.Fatal().Err(err).Msg("handle download")
	}

	docs := bot.Calls("document")
	if len(docs) == 0 {
		logger.Fatal().Msg("no document delivered")
	}
	if err := os.WriteFile(*out, docs[0].Body, 0o644); err != nil {
		logger.Fatal().Err(err).Msg("write output")
	}
	logger.Info().Str("out", *out).Int("bytes", len(docs[0].Body)).Msg("done")
}
