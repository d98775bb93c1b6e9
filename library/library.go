// Package library owns the live sequence of resolved media items shared
// between the render loop and the background refresh jobs.
package library

import (
	"strings"
	"sync"

	"github.com/jaison-mx/cartelera/layout"
	"github.com/jaison-mx/cartelera/media"
)

// Library is the single shared-mutable collection in the player. The
// lock is only ever held for in-memory swaps and patches, never across
// network or disk I/O; refresh cycles stage their work first and
// reconcile the finished result here.
type Library struct {
	mu       sync.RWMutex
	items    []media.Item
	resetSeq uint64
	cacheDir string
}

func New(cacheDir string) *Library {
	return &Library{cacheDir: cacheDir}
}

// Items returns a copy of the live sequence. Items are value copies so
// a frame can render from them without holding the lock while the
// background jobs patch attributes.
func (l *Library) Items() []media.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]media.Item, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// ResetSeq increments whenever the sequence is replaced wholesale. The
// scheduler watches it to know when rotation should restart from the
// first item. Merges and patches never bump it.
func (l *Library) ResetSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.resetSeq
}

// ReplaceAll swaps the entire sequence. A staged result identical to
// what's already live is a no-op so an unchanged re-fetch never disturbs
// playback. Returns whether a swap happened.
func (l *Library) ReplaceAll(staged []media.Item) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.replaceLocked(staged)
}

// MergeNew appends staged items whose src isn't present yet and updates
// in place, same slot, those whose src matches but whose resolved item
// differs. Rotation order and the current index survive a merge.
func (l *Library) MergeNew(staged []media.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mergeLocked(staged)
}

// Reconcile folds a fully staged refresh into the live sequence. If
// nothing changed it's a no-op; if every live src is still present the
// result is merged in place; only when something was removed does the
// sequence get replaced (and rotation reset).
func (l *Library) Reconcile(staged []media.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if equalSequence(l.items, staged) {
		releaseAll(staged)
		return
	}

	for _, existing := range l.items {
		if findBySrc(staged, existing.Rule.Src) == -1 {
			l.replaceLocked(staged)
			return
		}
	}
	l.mergeLocked(staged)
}

// PatchAttributes updates only the position offsets and scaling mode of
// items whose stored src contains the given one, leaving the decoded
// handle untouched. Returns whether anything matched.
func (l *Library) PatchAttributes(src, x, y, escalado string) bool {
	if src == "" {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	patched := false
	for i := range l.items {
		if !strings.Contains(l.items[i].Rule.Src, src) {
			continue
		}
		l.items[i].Rule.X = x
		l.items[i].Rule.Y = y
		if escalado != "" {
			l.items[i].Rule.Escalado = escalado
			l.items[i].Mode = layout.Normalise(escalado)
		}
		patched = true
	}
	return patched
}

// Close releases every decoder held by the live sequence.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	releaseAll(l.items)
	l.items = nil
}

func (l *Library) replaceLocked(staged []media.Item) bool {
	if equalSequence(l.items, staged) {
		releaseAll(staged)
		return false
	}
	releaseAll(l.items)
	l.items = staged
	l.resetSeq++
	return true
}

func (l *Library) mergeLocked(staged []media.Item) {
	for _, incoming := range staged {
		idx := findBySrc(l.items, incoming.Rule.Src)
		if idx == -1 {
			l.items = append(l.items, incoming)
			continue
		}
		if l.items[idx].Equal(incoming) {
			// Same resolved item, keep the live decoder running.
			incoming.Release()
			continue
		}
		l.items[idx].Release()
		l.items[idx] = incoming
	}
}

func findBySrc(items []media.Item, src string) int {
	for i := range items {
		if items[i].Rule.Src == src {
			return i
		}
	}
	return -1
}

func equalSequence(a, b []media.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func releaseAll(items []media.Item) {
	for _, item := range items {
		item.Release()
	}
}
