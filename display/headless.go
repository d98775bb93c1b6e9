package display

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/jaison-mx/cartelera/layout"
)

// Headless is an off-screen surface for development machines without a
// framebuffer and for tests. It composes frames into memory and keeps a
// record of what was drawn.
type Headless struct {
	back   *image.RGBA
	events chan Event

	// Draws accumulates the placements blitted since the last Clear.
	Draws    []layout.Placement
	Presents int
}

func NewHeadless(w, h int) *Headless {
	return &Headless{
		back:   image.NewRGBA(image.Rect(0, 0, w, h)),
		events: make(chan Event, 8),
	}
}

func (s *Headless) Size() (int, int) {
	b := s.back.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Headless) Clear() {
	draw.Draw(s.back, s.back.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	s.Draws = nil
}

func (s *Headless) Blit(img image.Image, p layout.Placement) {
	rect := image.Rect(p.X, p.Y, p.X+p.W, p.Y+p.H)
	xdraw.ApproxBiLinear.Scale(s.back, rect, img, img.Bounds(), xdraw.Over, nil)
	s.Draws = append(s.Draws, p)
}

func (s *Headless) Present() error {
	s.Presents++
	return nil
}

func (s *Headless) PollEvents() []Event {
	var events []Event
	for {
		select {
		case ev := <-s.events:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// PushEvent injects an input event, e.g. a fake escape press in tests.
func (s *Headless) PushEvent(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Headless) Close() error {
	return nil
}
