// Package player drives the render loop: a fixed-rate frame clock that
// reads the shared library, evaluates time windows, rotates segments and
// emits draw calls to the display surface.
package player

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"

	"github.com/jaison-mx/cartelera/control"
	"github.com/jaison-mx/cartelera/db"
	"github.com/jaison-mx/cartelera/display"
	"github.com/jaison-mx/cartelera/events"
	"github.com/jaison-mx/cartelera/layout"
	"github.com/jaison-mx/cartelera/library"
	"github.com/jaison-mx/cartelera/media"
	"github.com/jaison-mx/cartelera/playlist"
)

// Recorder receives a proof-of-play record each time a segment finishes.
type Recorder interface {
	Record(rec db.PlayRecord)
}

// Status is what the screen is showing right now, as served over the
// status API and the SSE stream.
type Status struct {
	ID      string    `json:"id"`
	Src     string    `json:"src"`
	Kind    string    `json:"kind"`
	Mode    string    `json:"mode"`
	RuleID  string    `json:"rule_id,omitempty"`
	Colours []string  `json:"dominant_colours,omitempty"`
	Since   time.Time `json:"since"`
}

// Player owns the rotation state. Only the render loop touches index and
// segmentStart; everything it shares with other goroutines goes through
// the library, the jump mailbox or the status holder.
type Player struct {
	lib     *library.Library
	jump    *control.Mailbox
	surface display.Surface
	zone    *time.Location
	fps     int
	rec     Recorder

	index        int
	segmentStart time.Time
	lastResetSeq uint64

	statusMu sync.RWMutex
	status   *Status

	now func() time.Time
}

func New(lib *library.Library, jump *control.Mailbox, surface display.Surface, rec Recorder, zone *time.Location, fps int) *Player {
	if fps <= 0 {
		fps = 30
	}
	return &Player{
		lib:     lib,
		jump:    jump,
		surface: surface,
		zone:    zone,
		fps:     fps,
		rec:     rec,
		now:     time.Now,
	}
}

// Run paces frames at the target rate until the context is cancelled or
// the surface reports a quit or escape event.
func (p *Player) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(p.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ev := range p.surface.PollEvents() {
				if ev.Kind == display.EventQuit || ev.Kind == display.EventEscape {
					slog.Info("Display requested shutdown")
					return
				}
			}
			p.Frame()
		}
	}
}

// Frame runs one full clear/compose/present cycle.
func (p *Player) Frame() {
	now := p.now().In(p.zone)
	p.surface.Clear()
	p.step(now)
	if err := p.surface.Present(); err != nil {
		slog.Error("Failed to present frame", slog.String("error", err.Error()))
	}
}

// step is the per-frame state machine. A frame either renders the
// current item or advances past one that can't be shown; it never does
// both, and it never lets a bad item take the loop down.
func (p *Player) step(now time.Time) {
	items := p.lib.Items()
	n := len(items)
	if n == 0 {
		p.setStatus(nil)
		return
	}

	if seq := p.lib.ResetSeq(); seq != p.lastResetSeq {
		p.lastResetSeq = seq
		p.index = 0
		p.segmentStart = now
	}
	if p.index >= n {
		p.index = 0
		p.segmentStart = now
	}

	// Pending jumps are one-shot: consumed here whether or not a
	// matching item exists.
	if id, ok := p.jump.Take(); ok {
		if idx := indexOfRule(items, id); idx >= 0 {
			p.index = idx
			p.segmentStart = now
			p.publish(items[idx], now)
		} else {
			slog.Warn("Dropping jump to unknown rule", slog.Int("rule_id", id))
		}
	}

	item := items[p.index]

	if !playlist.IsActive(item.Rule, now) {
		p.advance(items, now, false)
		return
	}

	p.setStatus(&Status{
		ID:      item.ID,
		Src:     item.Rule.Src,
		Kind:    string(item.Kind),
		Mode:    string(item.Mode),
		RuleID:  item.Rule.RuleID,
		Colours: item.Colours,
		Since:   p.segmentStart,
	})

	switch item.Kind {
	case media.KindImage:
		p.stepImage(item, items, now)
	case media.KindVideo:
		p.stepVideo(item, items, now)
	default:
		p.advance(items, now, false)
	}
}

func (p *Player) stepImage(item media.Item, items []media.Item, now time.Time) {
	offX, offY := item.Rule.Offsets()
	cw, ch := p.surface.Size()
	b := item.Bitmap.Bounds()

	pl, err := layout.Place(b.Dx(), b.Dy(), cw, ch, item.Mode, offX, offY)
	if err != nil {
		slog.Error("Cannot place image", slog.String("src", item.Rule.Src), slog.String("error", err.Error()))
		p.advance(items, now, false)
		return
	}
	p.surface.Blit(item.Bitmap, pl)

	duration := time.Duration(item.Rule.DurationSeconds()) * time.Second
	if now.Sub(p.segmentStart) >= duration {
		p.advance(items, now, true)
	}
}

func (p *Player) stepVideo(item media.Item, items []media.Item, now time.Time) {
	frame, err := item.Source.NextFrame()
	if err != nil {
		if err != io.EOF {
			slog.Error("Video frame read failed", slog.String("src", item.Rule.Src), slog.String("error", err.Error()))
		}
		if err := item.Source.Rewind(); err != nil {
			slog.Error("Failed to rewind video", slog.String("src", item.Rule.Src), slog.String("error", err.Error()))
		}
		p.advance(items, now, true)
		return
	}

	offX, offY := item.Rule.Offsets()
	cw, ch := p.surface.Size()
	b := frame.Bounds()

	pl, err := layout.Place(b.Dx(), b.Dy(), cw, ch, item.Mode, offX, offY)
	if err != nil {
		slog.Error("Cannot place video frame", slog.String("src", item.Rule.Src), slog.String("error", err.Error()))
		p.advance(items, now, false)
		return
	}
	p.surface.Blit(frame, pl)
}

// advance moves rotation to the next item. played marks segments that
// actually showed and should land in the proof-of-play log; items
// skipped for being out of window or unrenderable never played.
func (p *Player) advance(items []media.Item, now time.Time, played bool) {
	current := items[p.index]
	if played && p.rec != nil {
		p.rec.Record(db.PlayRecord{
			ID:        uuid.NewString(),
			MediaID:   current.ID,
			Src:       current.Rule.Src,
			Kind:      string(current.Kind),
			StartedAt: p.segmentStart,
			EndedAt:   now,
		})
	}

	p.index = (p.index + 1) % len(items)
	p.segmentStart = now
	p.publish(items[p.index], now)
}

// HasValidMedia reports whether any item in rotation is inside its
// window right now.
func (p *Player) HasValidMedia() bool {
	now := p.now().In(p.zone)
	for _, item := range p.lib.Items() {
		if playlist.IsActive(item.Rule, now) {
			return true
		}
	}
	return false
}

// NowPlaying returns the current status, if anything is showing.
func (p *Player) NowPlaying() (Status, bool) {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	if p.status == nil {
		return Status{}, false
	}
	return *p.status, true
}

func (p *Player) setStatus(st *Status) {
	p.statusMu.Lock()
	p.status = st
	p.statusMu.Unlock()
}

// publish pushes the upcoming segment to the SSE stream so operator
// dashboards follow rotation without polling.
func (p *Player) publish(next media.Item, now time.Time) {
	if events.Server == nil {
		return
	}
	payload, err := json.Marshal(Status{
		ID:      next.ID,
		Src:     next.Rule.Src,
		Kind:    string(next.Kind),
		Mode:    string(next.Mode),
		RuleID:  next.Rule.RuleID,
		Colours: next.Colours,
		Since:   now,
	})
	if err != nil {
		return
	}
	events.Server.Publish(events.StreamPlaying, &sse.Event{Data: payload})
}

func indexOfRule(items []media.Item, ruleID int) int {
	want := strconv.Itoa(ruleID)
	for i := range items {
		if items[i].Rule.RuleID == want {
			return i
		}
	}
	return -1
}
