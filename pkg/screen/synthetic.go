package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// SyntheticOptions configure the synthetic provider.
type SyntheticOptions struct {
	Width   int
	Height  int
	Quality int
}

// SyntheticProvider renders a deterministic gradient frame, optionally with
// a cursor marker, and compresses it with the stdlib JPEG encoder. It
// stands in for a native grabber off-darwin and in tests.
type SyntheticProvider struct {
	width   int
	height  int
	quality int
	seq     int
}

// NewSyntheticProvider validates options and returns a provider.
func NewSyntheticProvider(opts SyntheticOptions) (*SyntheticProvider, error) {
	width := opts.Width
	if width == 0 {
		width = 640
	}
	height := opts.Height
	if height == 0 {
		height = 400
	}
	if width < 0 || height < 0 {
		return nil, errors.New("screen: dimensions must be positive")
	}
	quality := opts.Quality
	if quality == 0 {
		quality = 75
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("screen: jpeg quality %d out of range 1-100", quality)
	}
	return &SyntheticProvider{width: width, height: height, quality: quality}, nil
}

// Grab renders and compresses one frame.
func (p *SyntheticProvider) Grab(ctx context.Context, cursor *Point) (Frame, error) {
	if ctx != nil && ctx.Err() != nil {
		return Frame{}, ctx.Err()
	}

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	shade := uint8(40 + (p.seq*13)%200)
	p.seq++
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			img.SetRGBA(x, y, color.RGBA{R: shade, G: uint8(x % 255), B: uint8(y % 255), A: 255})
		}
	}
	if cursor != nil {
		drawCursor(img, cursor.X, cursor.Y)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	return Frame{JPEG: buf.Bytes(), Width: p.width, Height: p.height}, nil
}

// drawCursor marks the cursor as a filled dark disc with a light ring,
// clipped to the frame bounds.
func drawCursor(img *image.RGBA, cx, cy int) {
	bounds := img.Bounds()
	if cx < bounds.Min.X || cx >= bounds.Max.X || cy < bounds.Min.Y || cy >= bounds.Max.Y {
		return
	}
	const radius = 8
	const ring = 3
	outer := (radius + ring) * (radius + ring)
	inner := radius * radius
	for dy := -radius - ring; dy <= radius+ring; dy++ {
		for dx := -radius - ring; dx <= radius+ring; dx++ {
			x, y := cx+dx, cy+dy
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			d := dx*dx + dy*dy
			switch {
			case d <= inner:
				img.SetRGBA(x, y, color.RGBA{A: 255})
			case d <= outer:
				img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
}
