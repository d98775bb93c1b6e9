package remote

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/jaison-mx/cartelera/config"
	"github.com/jaison-mx/cartelera/library"
	"github.com/jaison-mx/cartelera/playlist"
	"github.com/jaison-mx/cartelera/utils"
)

// AttributeUpdater re-fetches the playlist on its own cadence and
// patches only position and scaling of items already in rotation.
// Operators use it to nudge live content around without the reload that
// a full sync would mean for a new asset. It never downloads anything
// and never adds or removes items.
type AttributeUpdater struct {
	cfg    config.Config
	lib    *library.Library
	client *http.Client
}

func NewAttributeUpdater(cfg config.Config, lib *library.Library) *AttributeUpdater {
	return &AttributeUpdater{
		cfg:    cfg,
		lib:    lib,
		client: utils.NewHTTPClient(ConnectionTimeout),
	}
}

func (u *AttributeUpdater) Run() {
	res, err := u.client.Get(u.cfg.Playlist.URL)
	if err != nil {
		slog.Debug("Attribute refresh skipped", slog.String("error", err.Error()))
		return
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		slog.Debug("Attribute refresh skipped", slog.Int("status", res.StatusCode))
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

	for _, rule := range doc.Data {
		if rule.Src == "" {
			continue
		}
		x, y := rule.X, rule.Y
		if x == "" {
			x = "0"
		}
		if y == "" {
			y = "0"
		}
		u.lib.PatchAttributes(rule.Src, x, y, rule.Escalado)
	}
}
