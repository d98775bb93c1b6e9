//go:build !linux

package display

import (
	"fmt"
	"image"

	"github.com/jaison-mx/cartelera/layout"
)

// Framebuffer output only exists on the linux kiosk target. Elsewhere
// the headless surface is the way to run the player.
type Framebuffer struct{}

func OpenFramebuffer(device string) (*Framebuffer, error) {
	return nil, fmt.Errorf("display: framebuffer output is only available on linux")
}

func (s *Framebuffer) Size() (int, int) { return 0, 0 }

func (s *Framebuffer) Clear() {}

func (s *Framebuffer) Blit(img image.Image, p layout.Placement) {}

func (s *Framebuffer) Present() error { return nil }

func (s *Framebuffer) PollEvents() []Event { return nil }

func (s *Framebuffer) Close() error { return nil }
