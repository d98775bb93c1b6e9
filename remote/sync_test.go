package remote

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaison-mx/cartelera/config"
	"github.com/jaison-mx/cartelera/library"
)

const playlistBody = `{"data":[
  {"src":"media/a.png","escalado":"fit","fecha_inicio":"2024-01-01","fecha_fin":"2099-12-31","hora_inicio":"00:00:00","hora_fin":"23:59:59","duracion":"5"},
  {"escalado":"fit"}
]}`

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	server        *httptest.Server
	lib           *library.Library
	syncer        *Synchronizer
	assetRequests *atomic.Int64
}

func newFixture(t *testing.T, playlistHandler http.HandlerFunc) *fixture {
	t.Helper()

	asset := pngBytes(t)
	var assetRequests atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/playlist", playlistHandler)
	mux.HandleFunc("/media/a.png", func(w http.ResponseWriter, r *http.Request) {
		assetRequests.Add(1)
		w.Write(asset)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cfg := config.Config{}
	cfg.Playlist.URL = ts.URL + "/playlist"
	cfg.Playlist.BaseURL = ts.URL + "/"
	cfg.Playlist.ProbeURL = ts.URL + "/"

	lib := library.New(t.TempDir())
	require.NoError(t, lib.EnsureDirs())

	return &fixture{
		server:        ts,
		lib:           lib,
		syncer:        NewSynchronizer(cfg, lib),
		assetRequests: &assetRequests,
	}
}

func TestSynchronizer_RefreshDownloadsAndResolves(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Write([]byte(playlistBody))
	})

	f.syncer.Run()

	// The rule without src was dropped; the valid one resolved.
	require.Equal(t, 1, f.lib.Len())
	item := f.lib.Items()[0]
	assert.Equal(t, "media/a.png", item.Rule.Src)

	// Asset landed in the content cache under its base name.
	_, err := os.Stat(filepath.Join(f.lib.MediaDir(), "a.png"))
	assert.NoError(t, err)

	// Snapshot was persisted for the offline path.
	snapshot, err := f.lib.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, playlistBody, string(snapshot))

	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", f.syncer.lastFetch)
}

func TestSynchronizer_NotModifiedIsNoOp(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-Modified-Since") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Write([]byte(playlistBody))
	})

	f.syncer.Run()
	require.Equal(t, 1, f.lib.Len())
	seq := f.lib.ResetSeq()
	downloads := f.assetRequests.Load()

	// Clear the rate-limit gate and fetch again: the conditional request
	// gets a 304 and nothing moves.
	f.syncer.lastAction = time.Time{}
	f.syncer.Run()

	assert.Equal(t, seq, f.lib.ResetSeq())
	assert.Equal(t, downloads, f.assetRequests.Load())
}

func TestSynchronizer_ActsAtMostOncePerInterval(t *testing.T) {
	t.Parallel()
	var fetches atomic.Int64
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Write([]byte(playlistBody))
	})

	f.syncer.Run()
	f.syncer.Run()
	f.syncer.Run()

	assert.Equal(t, int64(1), fetches.Load())
}

func TestSynchronizer_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	f.syncer.Run()

	assert.Equal(t, 0, f.lib.Len())
	_, err := f.lib.LoadSnapshot()
	assert.Error(t, err, "a failed fetch must not overwrite the snapshot")
}

func TestSynchronizer_MissingAssetIsExcluded(t *testing.T) {
	t.Parallel()
	body := `{"data":[{"src":"media/gone.png","escalado":"fit"}]}`
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})

	f.syncer.Run()

	// The downloaded body isn't a decodable image, so the rule is
	// excluded while the batch itself succeeds.
	assert.Equal(t, 0, f.lib.Len())
	snapshot, err := f.lib.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, body, string(snapshot))
}

func TestSynchronizer_SlowAssetDownloadCompletes(t *testing.T) {
	t.Parallel()
	asset := pngBytes(t)
	body := `{"data":[{"src":"media/a.png","escalado":"fit"}]}`

	mux := http.NewServeMux()
	mux.HandleFunc("/playlist", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	// Deliver the asset in two halves with a gap longer than the request
	// timeout. A transfer that is slow but alive must still land.
	mux.HandleFunc("/media/a.png", func(w http.ResponseWriter, r *http.Request) {
		half := len(asset) / 2
		w.Write(asset[:half])
		w.(http.Flusher).Flush()
		time.Sleep(ConnectionTimeout + time.Second)
		w.Write(asset[half:])
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cfg := config.Config{}
	cfg.Playlist.URL = ts.URL + "/playlist"
	cfg.Playlist.BaseURL = ts.URL + "/"
	cfg.Playlist.ProbeURL = ts.URL + "/"

	lib := library.New(t.TempDir())
	require.NoError(t, lib.EnsureDirs())

	NewSynchronizer(cfg, lib).Run()

	require.Equal(t, 1, lib.Len())
	assert.Equal(t, "media/a.png", lib.Items()[0].Rule.Src)
}

func TestSynchronizer_UnchangedBodySkipsResolve(t *testing.T) {
	t.Parallel()
	// No Last-Modified, so every cycle gets a 200 with the same body.
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(playlistBody))
	})

	f.syncer.Run()
	require.Equal(t, 1, f.lib.Len())

	// Corrupt the cached asset. A cycle that re-resolved it would fail
	// and drop the item; an unchanged playlist must not re-resolve.
	junk := filepath.Join(f.lib.MediaDir(), "a.png")
	require.NoError(t, os.WriteFile(junk, []byte("not a png"), 0o644))

	f.syncer.lastAction = time.Time{}
	f.syncer.Run()

	assert.Equal(t, 1, f.lib.Len())
}

func TestSynchronizer_OfflineLoadsFromSnapshot(t *testing.T) {
	t.Parallel()
	lib := library.New(t.TempDir())
	require.NoError(t, lib.EnsureDirs())

	// Two rules persisted, but only one asset is cached locally.
	snapshot := `{"data":[
	  {"src":"media/a.png","escalado":"fit"},
	  {"src":"media/missing.png","escalado":"fit"}
	]}`
	require.NoError(t, lib.SaveSnapshot([]byte(snapshot)))
	require.NoError(t, os.WriteFile(filepath.Join(lib.MediaDir(), "a.png"), pngBytes(t), 0o644))

	cfg := config.Config{}
	// Nothing listens here, so the reachability probe fails fast.
	cfg.Playlist.ProbeURL = "http://127.0.0.1:1"
	cfg.Playlist.URL = "http://127.0.0.1:1/playlist"
	cfg.Playlist.BaseURL = "http://127.0.0.1:1/"

	syncer := NewSynchronizer(cfg, lib)
	syncer.Run()

	require.Equal(t, 1, lib.Len())
	assert.Equal(t, "media/a.png", lib.Items()[0].Rule.Src)
}

func TestReachable(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	client := ts.Client()
	assert.True(t, Reachable(client, ts.URL))
	assert.False(t, Reachable(client, "http://127.0.0.1:1"))
}
