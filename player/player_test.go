package player

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaison-mx/cartelera/control"
	"github.com/jaison-mx/cartelera/db"
	"github.com/jaison-mx/cartelera/display"
	"github.com/jaison-mx/cartelera/layout"
	"github.com/jaison-mx/cartelera/library"
	"github.com/jaison-mx/cartelera/media"
	"github.com/jaison-mx/cartelera/playlist"
)

type fakeRecorder struct {
	records []db.PlayRecord
}

func (r *fakeRecorder) Record(rec db.PlayRecord) {
	r.records = append(r.records, rec)
}

type fakeSource struct {
	frames   int
	pos      int
	rewinds  int
	failNext bool
}

func (s *fakeSource) NextFrame() (image.Image, error) {
	if s.failNext {
		return nil, errors.New("decoder exploded")
	}
	if s.pos >= s.frames {
		return nil, io.EOF
	}
	s.pos++
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (s *fakeSource) Rewind() error {
	s.pos = 0
	s.rewinds++
	return nil
}

func (s *fakeSource) Rate() float64 { return 25 }
func (s *fakeSource) Close() error  { return nil }

func imageItem(src, ruleID string) media.Item {
	return media.Item{
		ID:     media.GenerateID(media.KindImage, src),
		Kind:   media.KindImage,
		Bitmap: image.NewRGBA(image.Rect(0, 0, 4, 4)),
		Mode:   layout.ModeFit,
		Rule: playlist.Rule{
			Src:       src,
			RuleID:    ruleID,
			StartDate: "2024-01-01",
			EndDate:   "2099-12-31",
			StartTime: "00:00:00",
			EndTime:   "23:59:59",
			Duracion:  "5",
		},
	}
}

func expiredItem(src string) media.Item {
	item := imageItem(src, "")
	item.Rule.EndDate = "2020-01-01"
	return item
}

func videoItem(src string, source *fakeSource) media.Item {
	item := imageItem(src, "")
	item.Kind = media.KindVideo
	item.Bitmap = nil
	item.Source = source
	item.ID = media.GenerateID(media.KindVideo, src)
	return item
}

type harness struct {
	lib     *library.Library
	surface *display.Headless
	rec     *fakeRecorder
	mailbox *control.Mailbox
	p       *Player
	clock   time.Time
}

func newHarness(t *testing.T, items ...media.Item) *harness {
	t.Helper()
	lib := library.New(t.TempDir())
	if len(items) > 0 {
		require.True(t, lib.ReplaceAll(items))
	}

	h := &harness{
		lib:     lib,
		surface: display.NewHeadless(800, 600),
		rec:     &fakeRecorder{},
		mailbox: control.NewMailbox(),
		clock:   time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	h.p = New(h.lib, h.mailbox, h.surface, h.rec, time.UTC, 30)
	h.p.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) frame() {
	h.p.Frame()
}

func (h *harness) tick(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func (h *harness) playingSrc(t *testing.T) string {
	t.Helper()
	status, ok := h.p.NowPlaying()
	require.True(t, ok, "expected something to be playing")
	return status.Src
}

func TestPlayer_ImageAdvancesAfterDuration(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", ""), imageItem("b.jpg", ""))

	h.frame()
	assert.Equal(t, "a.jpg", h.playingSrc(t))
	assert.Len(t, h.surface.Draws, 1)

	// Still within the 5 second segment.
	h.tick(4 * time.Second)
	h.frame()
	assert.Equal(t, "a.jpg", h.playingSrc(t))
	assert.Empty(t, h.rec.records)

	// Past it: this frame renders a final time and advances.
	h.tick(2 * time.Second)
	h.frame()
	h.frame()
	assert.Equal(t, "b.jpg", h.playingSrc(t))

	require.Len(t, h.rec.records, 1)
	rec := h.rec.records[0]
	assert.Equal(t, "a.jpg", rec.Src)
	assert.Equal(t, time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), rec.StartedAt)
	assert.Equal(t, time.Date(2024, 6, 15, 12, 0, 6, 0, time.UTC), rec.EndedAt)
}

func TestPlayer_SingleItemWrapsToItself(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", ""))

	h.frame()
	h.tick(6 * time.Second)
	h.frame()
	h.frame()

	// Advance wrapped straight back around.
	assert.Equal(t, "a.jpg", h.playingSrc(t))
	status, _ := h.p.NowPlaying()
	assert.Equal(t, time.Date(2024, 6, 15, 12, 0, 6, 0, time.UTC), status.Since)
	require.Len(t, h.rec.records, 1)
}

func TestPlayer_SkipsItemsOutsideTheirWindow(t *testing.T) {
	t.Parallel()
	h := newHarness(t, expiredItem("old.jpg"), imageItem("current.jpg", ""))

	// First frame lands on the expired item and advances without
	// rendering it.
	h.frame()
	assert.Empty(t, h.surface.Draws)

	h.frame()
	assert.Equal(t, "current.jpg", h.playingSrc(t))
	assert.Len(t, h.surface.Draws, 1)

	// The skip never produced a play record.
	assert.Empty(t, h.rec.records)
	assert.True(t, h.p.HasValidMedia())
}

func TestPlayer_RotationAlwaysLandsOnValidItem(t *testing.T) {
	t.Parallel()
	h := newHarness(t, expiredItem("old.jpg"), imageItem("current.jpg", ""))

	// Several full rotations: the expired item is skipped every cycle.
	for cycle := 0; cycle < 3; cycle++ {
		h.frame()
		h.frame()
		assert.Equal(t, "current.jpg", h.playingSrc(t))
		h.tick(6 * time.Second)
	}

	for _, rec := range h.rec.records {
		assert.Equal(t, "current.jpg", rec.Src)
	}
}

func TestPlayer_JumpIsOneShot(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", "1"), imageItem("b.jpg", "2"), imageItem("c.jpg", "3"))

	h.frame()
	assert.Equal(t, "a.jpg", h.playingSrc(t))

	h.mailbox.Set(3)
	h.frame()
	assert.Equal(t, "c.jpg", h.playingSrc(t))

	// Consumed: the slot is clear.
	_, pending := h.mailbox.Take()
	assert.False(t, pending)
}

func TestPlayer_UnmatchedJumpIsDropped(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", "1"), imageItem("b.jpg", "2"))

	h.frame()
	h.mailbox.Set(99)
	h.frame()

	// Rotation is untouched and the request is gone, not retried.
	assert.Equal(t, "a.jpg", h.playingSrc(t))
	_, pending := h.mailbox.Take()
	assert.False(t, pending)
}

func TestPlayer_VideoAdvancesOnEndOfStream(t *testing.T) {
	t.Parallel()
	source := &fakeSource{frames: 2}
	h := newHarness(t, videoItem("clip.mp4", source), imageItem("b.jpg", ""))

	h.frame()
	h.frame()
	assert.Equal(t, "clip.mp4", h.playingSrc(t))
	assert.Len(t, h.surface.Draws, 1)

	// Third frame hits EOF: rewind and advance.
	h.frame()
	assert.Equal(t, 1, source.rewinds)

	h.frame()
	assert.Equal(t, "b.jpg", h.playingSrc(t))

	require.Len(t, h.rec.records, 1)
	assert.Equal(t, "clip.mp4", h.rec.records[0].Src)
}

func TestPlayer_VideoReadFailureAdvances(t *testing.T) {
	t.Parallel()
	source := &fakeSource{frames: 10, failNext: true}
	h := newHarness(t, videoItem("clip.mp4", source), imageItem("b.jpg", ""))

	h.frame()
	assert.Equal(t, 1, source.rewinds)

	h.frame()
	assert.Equal(t, "b.jpg", h.playingSrc(t))
}

func TestPlayer_UnplaceableItemIsSkipped(t *testing.T) {
	t.Parallel()
	broken := imageItem("broken.jpg", "")
	broken.Bitmap = image.NewRGBA(image.Rect(0, 0, 4, 0))
	h := newHarness(t, broken, imageItem("b.jpg", ""))

	h.frame()
	h.frame()

	assert.Equal(t, "b.jpg", h.playingSrc(t))
	assert.Empty(t, h.rec.records, "an unrenderable item never played")
}

func TestPlayer_IdleWithEmptyLibrary(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.frame()

	_, ok := h.p.NowPlaying()
	assert.False(t, ok)
	assert.False(t, h.p.HasValidMedia())
	assert.Empty(t, h.surface.Draws)
}

func TestPlayer_ReplaceResetsRotation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", ""), imageItem("b.jpg", ""))

	h.frame()
	h.tick(6 * time.Second)
	h.frame()
	h.frame()
	assert.Equal(t, "b.jpg", h.playingSrc(t))

	// A genuinely different playlist restarts rotation from the top.
	h.lib.ReplaceAll([]media.Item{imageItem("x.jpg", ""), imageItem("y.jpg", "")})
	h.frame()
	assert.Equal(t, "x.jpg", h.playingSrc(t))
}

func TestPlayer_MergePreservesCurrentIndex(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", ""), imageItem("b.jpg", ""), imageItem("c.jpg", ""))

	h.frame()
	h.tick(6 * time.Second)
	h.frame()
	h.frame()
	assert.Equal(t, "b.jpg", h.playingSrc(t))

	// One new asset appearing mid-rotation must not bounce playback
	// back to the first item.
	h.lib.Reconcile([]media.Item{
		imageItem("a.jpg", ""), imageItem("b.jpg", ""), imageItem("c.jpg", ""), imageItem("d.jpg", ""),
	})
	h.frame()
	assert.Equal(t, "b.jpg", h.playingSrc(t))
}

func TestPlayer_RunStopsOnEscape(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", ""))
	h.p.now = time.Now

	h.surface.PushEvent(display.Event{Kind: display.EventEscape})

	done := make(chan struct{})
	go func() {
		h.p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after an escape event")
	}
}

func TestPlayer_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	h := newHarness(t, imageItem("a.jpg", ""))
	h.p.now = time.Now

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.p.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
