package store

import (
	"context"
	"time"
)

// Observation is one background refresh of a collector: when it
// started, how long it took and whether it succeeded. Detail carries
// the error text of a failed refresh.
type Observation struct {
	ObservationID int64
	Collector     string
	StartedOn     time.Time
	DurationMs    int64
	Success       bool
	Detail        *string
}

type ObservationWriter interface {
	CreateObservation(
		ctx context.Context,
		collector string,
		startedOn time.Time,
		duration time.Duration,
		success bool,
		detail *string,
	) (*Observation, error)
	DeleteObservationsBefore(context.Context, time.Time) (int64, error)
}

type ObservationReader interface {
	ListCollectorObservations(context.Context, string, int64) ([]Observation, error)
	ListLatestObservations(context.Context) ([]Observation, error)
}

type ObservationStore interface {
	ObservationWriter
	ObservationReader
}
