// File: internal/usecase/background_uc.go
package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp" // registers the WebP decoder used by imaging.Decode

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/model"
	"telegram-bg-remover/internal/domain/ports/adapter"
	"telegram-bg-remover/internal/domain/ports/repository"
	derror "telegram-bg-remover/internal/error"
	"telegram-bg-remover/internal/infra/metrics"
)

// Compile-time check
var _ BackgroundUseCase = (*backgroundUC)(nil)

// BackgroundUseCase turns raw photo bytes into a stored, watermarked cutout
// and serves stored cutouts back.
type BackgroundUseCase interface {
	Process(ctx context.Context, raw []byte) (*model.Artifact, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// putAttempts bounds retries when a freshly generated id already exists.
const putAttempts = 3

type backgroundUC struct {
	remover adapter.BackgroundRemover
	stamper adapter.Watermarker
	store   repository.ArtifactStore

	text   string
	maxDim int
	log    *zerolog.Logger
}

func NewBackgroundUseCase(
	remover adapter.BackgroundRemover,
	stamper adapter.Watermarker,
	store repository.ArtifactStore,
	watermarkText string,
	maxDimension int,
	logger *zerolog.Logger,
) *backgroundUC {
	l := logger.With().Str("component", "BackgroundUC").Logger()
	return &backgroundUC{
		remover: remover,
		stamper: stamper,
		store:   store,
		text:    watermarkText,
		maxDim:  maxDimension,
		log:     &l,
	}
}

// Process runs decode, removal, watermark and persist in order. Any error is
// a *derror.StageError naming the step that failed; nothing is stored unless
// every step succeeded.
func (b *backgroundUC) Process(ctx context.Context, raw []byte) (*model.Artifact, error) {
	img, err := b.decode(raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cut, err := b.remover.Remove(ctx, img)
	metrics.ObserveStage(string(derror.StageRemoval), start, err == nil)
	if err != nil {
		return nil, derror.Wrap(derror.StageRemoval, fmt.Errorf("%s: %w", b.remover.Name(), err))
	}

	start = time.Now()
	stamped, err := b.stamper.Stamp(cut, b.text)
	metrics.ObserveStage(string(derror.StageWatermark), start, err == nil)
	if err != nil {
		return nil, derror.Wrap(derror.StageWatermark, err)
	}

	start = time.Now()
	id, err := b.put(ctx, stamped)
	metrics.ObserveStage(string(derror.StagePersist), start, err == nil)
	if err != nil {
		return nil, derror.Wrap(derror.StagePersist, err)
	}
	metrics.IncArtifactStored()

	bounds := stamped.Bounds()
	a := model.NewArtifact(id, bounds.Dx(), bounds.Dy())
	b.log.Debug().Str("artifact_id", id).Int("width", a.Width).Int("height", a.Height).Msg("artifact stored")
	return a, nil
}

func (b *backgroundUC) decode(raw []byte) (image.Image, error) {
	start := time.Now()
	img, err := decodeImage(raw, b.maxDim)
	metrics.ObserveStage(string(derror.StageDecode), start, err == nil)
	if err != nil {
		return nil, derror.Wrap(derror.StageDecode, err)
	}
	return img, nil
}

// decodeImage sniffs raw, applies EXIF orientation and downscales anything
// whose longer side exceeds maxDim.
func decodeImage(raw []byte, maxDim int) (image.Image, error) {
	if len(raw) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%s: %w", mt.String(), domain.ErrUnsupportedMedia)
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", mt.String(), err)
	}
	bounds := img.Bounds()
	if maxDim > 0 && (bounds.Dx() > maxDim || bounds.Dy() > maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	return img, nil
}

func (b *backgroundUC) put(ctx context.Context, img image.Image) (string, error) {
	var err error
	for i := 0; i < putAttempts; i++ {
		var id string
		id, err = b.store.Put(ctx, img)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return "", err
		}
		b.log.Warn().Err(err).Msg("artifact id collision, retrying")
	}
	return "", err
}

// Open returns the stored PNG for id, or domain.ErrArtifactNotFound when it
// is unknown, malformed or was removed.
func (b *backgroundUC) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	ok, err := b.store.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrArtifactNotFound
	}
	return b.store.Open(ctx, id)
}
