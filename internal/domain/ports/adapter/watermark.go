package adapter

import "image"

// Watermarker returns a copy of img with text stamped near the bottom-right corner.
type Watermarker interface {
	Stamp(img image.Image, text string) (*image.NRGBA, error)
}
