package db

import (
	"context"
	"log/slog"
)

// AsyncWriter decouples the render loop from disk. Record never blocks;
// if the buffer is full the record is dropped and counted, which beats
// stalling a frame.
type AsyncWriter struct {
	store Store
	ch    chan PlayRecord
}

func NewAsyncWriter(store Store) *AsyncWriter {
	return &AsyncWriter{
		store: store,
		ch:    make(chan PlayRecord, 16),
	}
}

func (w *AsyncWriter) Record(rec PlayRecord) {
	select {
	case w.ch <- rec:
	default:
		slog.Warn("Play log buffer full, dropping record", slog.String("src", rec.Src))
	}
}

func (w *AsyncWriter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-w.ch:
			if err := w.store.RecordPlay(rec); err != nil {
				slog.Error("Failed to record play", slog.String("error", err.Error()))
			}
		}
	}
}
