package service

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rust-lang/monitorbot/internal/collector"
	"github.com/rust-lang/monitorbot/internal/store"
)

// ObservationRetention is how long refresh observations are kept before
// the daily prune job removes them.
const ObservationRetention = 30 * 24 * time.Hour

// RefreshService runs collectors in the background and records one
// observation row per refresh, so /status can report when each
// collector last succeeded.
type RefreshService struct {
	observationStore store.ObservationStore
	scheduler        gocron.Scheduler
}

func NewRefreshService(
	observationStore store.ObservationStore,
	scheduler gocron.Scheduler,
) *RefreshService {
	return &RefreshService{
		observationStore: observationStore,
		scheduler:        scheduler,
	}
}

// ScheduleCollector refreshes c every interval, starting immediately so
// the first scrape after startup is already populated. Each refresh is
// bounded by the interval itself; a hanging upstream call cannot pile
// up overlapping refreshes.
func (s *RefreshService) ScheduleCollector(c collector.Collector, interval time.Duration) error {
	log.Printf("registering %s collector, refresh interval %s\n", c.Name(), interval)
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			s.Refresh(ctx, c)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	return err
}

// Refresh runs one collector update and records its outcome. Refresh
// failures are logged and recorded, never propagated: the collector
// keeps its previous gauges and the next tick retries.
func (s *RefreshService) Refresh(ctx context.Context, c collector.Collector) {
	startedOn := time.Now().UTC()
	err := c.Update(ctx)
	duration := time.Since(startedOn)

	success := err == nil
	var detail *string
	if err != nil {
		log.Printf("err refreshing %s: %+v\n", c.Name(), err)
		message := err.Error()
		detail = &message
	}

	if _, storeErr := s.observationStore.CreateObservation(
		context.Background(),
		c.Name(),
		startedOn,
		duration,
		success,
		detail,
	); storeErr != nil {
		log.Printf("err recording %s observation: %+v\n", c.Name(), storeErr)
	}
}

// ScheduleDailyPrune removes observations older than the retention
// window once a day at midnight.
func (s *RefreshService) ScheduleDailyPrune() error {
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().Add(-ObservationRetention)
			deleted, err := s.observationStore.DeleteObservationsBefore(
				context.Background(), cutoff,
			)
			if err != nil {
				log.Printf("err pruning observations: %+v\n", err)
				return
			}
			if deleted > 0 {
				log.Printf("pruned %d observations older than %s\n", deleted, cutoff)
			}
		}),
	)
	return err
}

func (s *RefreshService) LatestObservations(ctx context.Context) ([]store.Observation, error) {
	return s.observationStore.ListLatestObservations(ctx)
}
