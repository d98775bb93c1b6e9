// Package remote keeps the local media library reconciled with the
// remotely-authored playlist.
package remote

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/jaison-mx/cartelera/config"
	"github.com/jaison-mx/cartelera/library"
	"github.com/jaison-mx/cartelera/media"
	"github.com/jaison-mx/cartelera/playlist"
	"github.com/jaison-mx/cartelera/utils"
)

const (
	// ConnectionTimeout bounds connection setup on every network touch,
	// and the whole request for the small playlist/probe responses.
	ConnectionTimeout = 5 * time.Second
	// UpdateInterval rate-limits actual refresh work. The job itself is
	// polled more often so a missed window is cheap to retry.
	UpdateInterval = 30 * time.Second
)

// Synchronizer periodically fetches the remote playlist, downloads any
// assets missing from the content cache and reconciles the result into
// the library. It runs on a single gocron task so its fields need no
// locking of their own.
type Synchronizer struct {
	cfg        config.Config
	lib        *library.Library
	client     *http.Client
	downloads  *http.Client
	lastFetch  string // Last-Modified of the previous successful fetch
	lastSum    uint64 // content hash of the previous fully-resolved fetch
	lastAction time.Time
}

func NewSynchronizer(cfg config.Config, lib *library.Library) *Synchronizer {
	return &Synchronizer{
		cfg:       cfg,
		lib:       lib,
		client:    utils.NewHTTPClient(ConnectionTimeout),
		downloads: utils.NewDownloadClient(ConnectionTimeout),
	}
}

// Run is the scheduled entrypoint. It acts at most once per
// UpdateInterval, routing to the online or offline path depending on
// whether the network is reachable at all. A failed playlist fetch does
// not count as being offline; it's a transient error retried next cycle.
func (s *Synchronizer) Run() {
	if time.Since(s.lastAction) < UpdateInterval {
		return
	}
	s.lastAction = time.Now()

	if Reachable(s.client, s.cfg.Playlist.ProbeURL) {
		s.refresh()
	} else {
		slog.Info("Network unreachable, serving from local cache")
		s.LoadLocal()
	}
}

func (s *Synchronizer) refresh() {
	req, err := http.NewRequest(http.MethodGet, s.cfg.Playlist.URL, nil)
	if err != nil {
		slog.Error("Failed to prepare playlist request", slog.String("error", err.Error()))
		return
	}
	if s.lastFetch != "" {
		req.Header.Set("If-Modified-Since", s.lastFetch)
	}

	res, err := s.client.Do(req)
	if err != nil {
		slog.Error("Failed to fetch playlist", slog.String("error", err.Error()))
		return
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified {
		slog.Debug("Playlist unchanged since last fetch")
		return
	}
	if res.StatusCode != http.StatusOK {
		slog.Warn("Playlist fetch returned non-success status", slog.Int("status", res.StatusCode))
		return
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		slog.Error("Failed to read playlist response", slog.String("error", err.Error()))
		return
	}

	doc, err := playlist.ParseDocument(body)
	if err != nil {
		slog.Error("Failed to parse playlist document", slog.String("error", err.Error()))
		return
	}

	// Servers without Last-Modified answer 200 every cycle. Hashing the
	// body keeps an unchanged playlist from re-decoding every asset and
	// respawning every video decoder just to throw the duplicates away.
	sum := xxhash.Sum64(body)
	if sum == s.lastSum {
		slog.Debug("Playlist content unchanged")
		return
	}

	if lm := res.Header.Get("Last-Modified"); lm != "" {
		s.lastFetch = lm
	}

	if err := s.lib.SaveSnapshot(body); err != nil {
		slog.Error("Failed to persist playlist snapshot", slog.String("error", err.Error()))
	}

	staged := s.resolveRules(doc, true)
	slog.Info("Playlist refreshed", slog.Int("rules", len(doc.Data)), slog.Int("resolved", len(staged)))
	s.lib.Reconcile(staged)

	// Only a fully resolved batch settles the hash; a cycle that dropped
	// an asset keeps retrying until the whole playlist lands.
	if len(staged) == countPlayable(doc) {
		s.lastSum = sum
	}
}

func countPlayable(doc playlist.Document) int {
	n := 0
	for _, rule := range doc.Data {
		if rule.Src != "" {
			n++
		}
	}
	return n
}

// LoadLocal rebuilds the library from the last persisted snapshot and
// whatever content is already cached. Assets missing locally are simply
// left out until connectivity returns.
func (s *Synchronizer) LoadLocal() {
	body, err := s.lib.LoadSnapshot()
	if err != nil {
		slog.Debug("No playlist snapshot available", slog.String("error", err.Error()))
		return
	}
	doc, err := playlist.ParseDocument(body)
	if err != nil {
		slog.Error("Persisted playlist snapshot is unreadable", slog.String("error", err.Error()))
		return
	}
	s.lib.Reconcile(s.resolveRules(doc, false))
}

// resolveRules stages the document's rules as playable items. Nothing
// touches the library until the whole batch is done, so a failed rule
// can never leave the live sequence half-mutated.
func (s *Synchronizer) resolveRules(doc playlist.Document, download bool) []media.Item {
	var staged []media.Item
	for _, rule := range doc.Data {
		if rule.Src == "" {
			slog.Warn("Dropping playlist rule without src")
			continue
		}

		// Cache entries are keyed by base file name only. Two rules whose
		// srcs share a base name collide; known limitation.
		local := filepath.Join(s.lib.MediaDir(), filepath.Base(rule.Src))

		if _, err := os.Stat(local); err != nil {
			if !download {
				continue
			}
			if err := s.download(s.cfg.Playlist.BaseURL+rule.Src, local); err != nil {
				slog.Error("Failed to download asset",
					slog.String("src", rule.Src),
					slog.String("error", err.Error()))
				continue
			}
		}

		item, err := media.Resolve(local, rule)
		if err != nil {
			slog.Error("Failed to resolve asset", slog.String("src", rule.Src), slog.String("error", err.Error()))
			continue
		}
		staged = append(staged, item)
	}
	return staged
}

func (s *Synchronizer) download(url, dest string) error {
	res, err := s.downloads.Get(url)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return &StatusError{URL: url, Status: res.StatusCode}
	}

	tmp := dest + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, res.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
