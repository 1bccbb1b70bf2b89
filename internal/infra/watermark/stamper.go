package watermark

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"telegram-bg-remover/internal/domain"
	"telegram-bg-remover/internal/domain/ports/adapter"
)

var _ adapter.Watermarker = (*Stamper)(nil)

const (
	edgeOffset  = 10 // distance of the text from the right and bottom edges
	boxMargin   = 5  // backing rectangle grows by this much around the text
	minFontSize = 20
	// smallest size tried when shrinking the label to fit a small image
	minShrinkSize = 6
)

var (
	backingColor = color.NRGBA{R: 0, G: 0, B: 0, A: 100}
	textColor    = color.NRGBA{R: 255, G: 255, B: 255, A: 200}
)

// Layout is where the label goes on an image of a given size.
type Layout struct {
	FontSize float64
	// Text is the measured text box; its top-left is the drawing origin.
	Text image.Rectangle
	// Box is the backing rectangle: Text grown by the margin.
	Box image.Rectangle

	ascent int
	face   font.Face
}

// Stamper draws a text label over a semi-transparent dark box in the
// bottom-right corner of an image.
type Stamper struct {
	ttf  *truetype.Font // nil means the bitmap fallback face
	name string
	log  *zerolog.Logger
}

// NewStamper walks fontPaths in order and uses the first TrueType font that
// loads; otherwise the bundled Go Regular font, otherwise a fixed bitmap face.
func NewStamper(fsys afero.Fs, fontPaths []string, logger *zerolog.Logger) *Stamper {
	l := logger.With().Str("component", "Watermark").Logger()
	s := &Stamper{log: &l}

	for _, p := range fontPaths {
		p = strings.TrimSpace(p)
		if p == "" || fsys == nil {
			continue
		}
		b, err := afero.ReadFile(fsys, p)
		if err != nil {
			l.Debug().Str("font", p).Err(err).Msg("font not available")
			continue
		}
		f, err := truetype.Parse(b)
		if err != nil {
			l.Warn().Str("font", p).Err(err).Msg("font unreadable")
			continue
		}
		s.ttf, s.name = f, p
		l.Info().Str("font", p).Msg("watermark font selected")
		return s
	}

	if f, err := truetype.Parse(goregular.TTF); err == nil {
		s.ttf, s.name = f, "goregular"
		l.Info().Str("font", s.name).Msg("watermark font selected (bundled)")
		return s
	}

	s.name = "basicfont-7x13"
	l.Warn().Msg("no truetype font available, using bitmap face")
	return s
}

// FontName reports which entry of the preference list was selected.
func (s *Stamper) FontName() string { return s.name }

// FontSize is the preferred size for an image of the given bounds:
// one twentieth of the shorter side, never below 20.
func FontSize(bounds image.Rectangle) float64 {
	short := bounds.Dx()
	if bounds.Dy() < short {
		short = bounds.Dy()
	}
	size := short / 20
	if size < minFontSize {
		size = minFontSize
	}
	return float64(size)
}

func (s *Stamper) face(size float64) font.Face {
	if s.ttf == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(s.ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Layout computes the label placement, shrinking the font until the box fits
// inside bounds. It fails with domain.ErrImageTooSmall when nothing fits.
func (s *Stamper) Layout(bounds image.Rectangle, text string) (Layout, error) {
	if strings.TrimSpace(text) == "" {
		return Layout{}, domain.ErrInvalidArgument
	}
	for size := FontSize(bounds); size >= minShrinkSize; size-- {
		face := s.face(size)
		tw := font.MeasureString(face, text).Ceil()
		m := face.Metrics()
		ascent := m.Ascent.Ceil()
		th := ascent + m.Descent.Ceil()

		x := bounds.Max.X - tw - edgeOffset
		y := bounds.Max.Y - th - edgeOffset
		txt := image.Rect(x, y, x+tw, y+th)
		box := image.Rect(x-boxMargin, y-boxMargin, x+tw+boxMargin, y+th+boxMargin)
		if box.In(bounds) {
			return Layout{FontSize: size, Text: txt, Box: box, ascent: ascent, face: face}, nil
		}
		if s.ttf == nil {
			// bitmap face has a single size
			break
		}
	}
	return Layout{}, fmt.Errorf("%dx%d: %w", bounds.Dx(), bounds.Dy(), domain.ErrImageTooSmall)
}

// Stamp returns a copy of img with text drawn bottom-right over the backing
// box. img itself is not modified and the result has the same dimensions.
func (s *Stamper) Stamp(img image.Image, text string) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("watermark: nil image")
	}
	// Clone rebases to a (0,0) origin.
	dst := imaging.Clone(img)

	lay, err := s.Layout(dst.Bounds(), text)
	if err != nil {
		return nil, err
	}

	draw.Draw(dst, lay.Box, image.NewUniform(backingColor), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: lay.face,
		Dot:  fixed.P(lay.Text.Min.X, lay.Text.Min.Y+lay.ascent),
	}
	d.DrawString(text)
	return dst, nil
}
