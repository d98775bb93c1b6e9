// Package db persists the proof-of-play log: one row per completed
// segment, so operators can verify what a screen actually showed.
package db

import (
	"embed"
	"time"
)

// PlayRecord captures one completed segment.
type PlayRecord struct {
	ID        string    `db:"id" json:"id"`
	MediaID   string    `db:"media_id" json:"media_id"`
	Src       string    `db:"src" json:"src"`
	Kind      string    `db:"kind" json:"kind"`
	StartedAt time.Time `db:"started_at" json:"started_at"`
	EndedAt   time.Time `db:"ended_at" json:"ended_at"`
}

type Store interface {
	ApplyMigrations(migrations embed.FS) error
	RecordPlay(rec PlayRecord) error
	RecentPlays(limit int) ([]PlayRecord, error)
	Close() error
}
