// Package screen defines the screen-pixel acquisition collaborator used by
// the capture loop, with a deterministic synthetic backend for tests and
// platforms without a native grabber.
package screen

import "context"

// Point is an absolute screen coordinate.
type Point struct {
	X int
	Y int
}

// Frame bundles one compressed capture with its dimensions.
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
}

// Provider produces screen frames. Grab must be synchronous and free of
// side effects beyond the returned frame. A non-nil cursor requests an
// overlay marker at that position.
type Provider interface {
	Grab(ctx context.Context, cursor *Point) (Frame, error)
}
