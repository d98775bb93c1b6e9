// Package display abstracts the render target. The player only ever
// talks to the Surface interface; concrete backends live behind it.
package display

import (
	"image"

	"github.com/jaison-mx/cartelera/layout"
)

type EventKind int

const (
	EventQuit EventKind = iota
	EventEscape
)

type Event struct {
	Kind EventKind
}

// Surface is a fixed-size canvas with a clear/blit/present cycle and a
// polled event source. Implementations are driven from the render loop
// only and need no internal locking.
type Surface interface {
	Size() (int, int)
	Clear()
	// Blit scales img to the placement's size and draws it at its
	// position. Draws falling outside the canvas are clipped.
	Blit(img image.Image, p layout.Placement)
	// Present pushes the composed frame to the screen.
	Present() error
	// PollEvents drains any pending input events.
	PollEvents() []Event
	Close() error
}
