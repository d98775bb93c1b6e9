// Package media turns cached playlist assets into ready-to-render items.
package media

import (
	"fmt"
	"image"

	"github.com/cespare/xxhash/v2"

	"github.com/jaison-mx/cartelera/layout"
	"github.com/jaison-mx/cartelera/playlist"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// FrameSource streams decoded video frames. Implementations own an
// underlying decoder and are only ever driven from the render loop.
type FrameSource interface {
	// NextFrame returns the next decoded frame, or io.EOF once the
	// stream is exhausted.
	NextFrame() (image.Image, error)
	// Rewind restarts decoding from the first frame.
	Rewind() error
	// Rate is the source's native frame rate in frames per second.
	Rate() float64
	Close() error
}

// Item is a playlist rule resolved against the local content cache.
// Exactly one of Bitmap or Source is set, depending on Kind.
//
// Mode and the rule's x/y offsets may be live-patched while the item is
// in rotation; the decoded handle is never touched by a patch.
type Item struct {
	ID      string
	Kind    Kind
	Bitmap  image.Image
	Source  FrameSource
	Mode    layout.Mode
	Rule    playlist.Rule
	Colours []string
}

// Equal reports whether two resolved items would render identically,
// ignoring the decoded handles, which are derived from the same cached
// file either way.
func (i Item) Equal(o Item) bool {
	return i.Kind == o.Kind && i.Mode == o.Mode && i.Rule == o.Rule
}

// Release frees any decoder held by the item.
func (i Item) Release() {
	if i.Source != nil {
		i.Source.Close()
	}
}

// GenerateID builds a deterministic identity for an item. It's stable
// across restarts so play log rows stay joinable.
func GenerateID(kind Kind, src string) string {
	return fmt.Sprintf("%s:%d", kind, xxhash.Sum64String(src))
}
