// Package layout computes where and at what size a media item is drawn
// on the display canvas.
package layout

import (
	"errors"
)

type Mode string

const (
	ModeOriginal Mode = "original"
	ModeFit      Mode = "fit"
	ModeOutfit   Mode = "outfit"
	ModeStretch  Mode = "escalado"
)

// Normalise maps a rule's scaling string onto a known mode. Anything
// unrecognised falls back to fit.
func Normalise(s string) Mode {
	switch Mode(s) {
	case ModeOriginal, ModeFit, ModeOutfit, ModeStretch:
		return Mode(s)
	default:
		return ModeFit
	}
}

type Placement struct {
	W, H int
	X, Y int
}

var ErrZeroHeight = errors.New("layout: media has zero intrinsic height")

// Place resolves the draw size and position for media of intrinsic size
// mw x mh on a cw x ch canvas.
//
// Offsets apply asymmetrically on purpose: original takes both, fit only
// shifts on Y, outfit only on X, and stretch ignores them entirely.
func Place(mw, mh, cw, ch int, mode Mode, offX, offY int) (Placement, error) {
	if mh == 0 {
		return Placement{}, ErrZeroHeight
	}

	switch mode {
	case ModeOriginal:
		return Placement{
			W: mw,
			H: mh,
			X: cw/2 - mw/2 + offX,
			Y: ch/2 - mh/2 + offY,
		}, nil
	case ModeOutfit:
		w, h := cover(mw, mh, cw, ch)
		return Placement{
			W: w,
			H: h,
			X: (cw-w)/2 + offX,
			Y: (ch - h) / 2,
		}, nil
	case ModeStretch:
		return Placement{W: cw, H: ch}, nil
	default: // fit
		w, h := contain(mw, mh, cw, ch)
		return Placement{
			W: w,
			H: h,
			X: (cw - w) / 2,
			Y: (ch-h)/2 + offY,
		}, nil
	}
}

// contain scales to the largest size that fits entirely inside the
// canvas, preserving aspect ratio.
func contain(mw, mh, cw, ch int) (int, int) {
	aspect := float64(mw) / float64(mh)
	if float64(cw)/float64(ch) > aspect {
		h := ch
		return int(float64(h) * aspect), h
	}
	w := cw
	return w, int(float64(w) / aspect)
}

// cover scales to the smallest size that fully covers the canvas,
// preserving aspect ratio. It may overflow on one axis.
func cover(mw, mh, cw, ch int) (int, int) {
	aspect := float64(mw) / float64(mh)
	if float64(cw)/float64(ch) > aspect {
		w := cw
		return w, int(float64(w) / aspect)
	}
	h := ch
	return int(float64(h) * aspect), h
}
