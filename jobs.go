package main

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/jaison-mx/cartelera/remote"
)

const pollInterval = 10 * time.Second

// SetupInBackground schedules the two refresh activities: the full
// playlist synchronizer (polled often, rate-limited internally) and the
// attribute live-updater.
func SetupInBackground(syncer *remote.Synchronizer, updater *remote.AttributeUpdater) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	if _, err := s.NewJob(
		gocron.DurationJob(pollInterval),
		gocron.NewTask(syncer.Run),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	); err != nil {
		return nil, err
	}

	if _, err := s.NewJob(
		gocron.DurationJob(pollInterval),
		gocron.NewTask(updater.Run),
	); err != nil {
		return nil, err
	}

	return s, nil
}
