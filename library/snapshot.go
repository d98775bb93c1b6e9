package library

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const (
	snapshotFile = "config.json"
	mediaDirName = "media"
)

// SnapshotPath is where the last good playlist document lives.
func (l *Library) SnapshotPath() string {
	return filepath.Join(l.cacheDir, snapshotFile)
}

// MediaDir is the content cache directory for downloaded assets.
func (l *Library) MediaDir() string {
	return filepath.Join(l.cacheDir, mediaDirName)
}

// EnsureDirs creates the cache layout on first run.
func (l *Library) EnsureDirs() error {
	return os.MkdirAll(l.MediaDir(), 0o755)
}

// SaveSnapshot persists the raw playlist document atomically so a crash
// mid-write can't corrupt the offline fallback.
func (l *Library) SaveSnapshot(raw []byte) error {
	return renameio.WriteFile(l.SnapshotPath(), raw, 0o644)
}

// LoadSnapshot reads back the last persisted playlist document.
func (l *Library) LoadSnapshot() ([]byte, error) {
	return os.ReadFile(l.SnapshotPath())
}
