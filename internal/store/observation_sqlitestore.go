package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/rust-lang/monitorbot/internal"
)

type ObservationSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewObservationSQLiteStore(rdb, rwdb *sql.DB) *ObservationSQLiteStore {
	return &ObservationSQLiteStore{rdb, rwdb}
}

func (store *ObservationSQLiteStore) CreateObservation(
	ctx context.Context,
	collector string,
	startedOn time.Time,
	duration time.Duration,
	success bool,
	detail *string,
) (*Observation, error) {
	o := &Observation{
		Collector:  collector,
		StartedOn:  startedOn,
		DurationMs: duration.Milliseconds(),
		Success:    success,
		Detail:     detail,
	}
	query := `insert into observations (
		collector,
		started_on,
		duration_ms,
		success,
		detail
	)
	values ($1, $2, $3, $4, $5)
	returning observation_id`
	if err := sqlscan.Get(
		ctx, store.rwdb, &o.ObservationID, query,
		o.Collector,
		o.StartedOn.Format(internal.DBTimestampLayout),
		o.DurationMs,
		o.Success,
		o.Detail,
	); err != nil {
		return nil, err
	}
	return o, nil
}

func (store *ObservationSQLiteStore) ListCollectorObservations(
	ctx context.Context,
	collector string,
	limit int64,
) ([]Observation, error) {
	query := `select * from observations
	where collector = $1
	order by started_on desc, observation_id desc limit $2`
	observations := make([]Observation, 0)
	err := sqlscan.Select(ctx, store.rdb, &observations, query, collector, limit)
	return observations, err
}

func (store *ObservationSQLiteStore) ListLatestObservations(
	ctx context.Context,
) ([]Observation, error) {
	query := `select * from observations
	where observation_id in (
		select max(observation_id) from observations group by collector
	)
	order by collector`
	observations := make([]Observation, 0)
	err := sqlscan.Select(ctx, store.rdb, &observations, query)
	return observations, err
}

func (store *ObservationSQLiteStore) DeleteObservationsBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := "delete from observations where started_on < $1"
	res, err := store.rwdb.ExecContext(ctx, query, cutoff.Format(internal.DBTimestampLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
