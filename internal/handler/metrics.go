package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rust-lang/monitorbot/internal/store"
)

type ObservationLister interface {
	LatestObservations(context.Context) ([]store.Observation, error)
}

type MetricsHandler struct {
	metrics      echo.HandlerFunc
	observations ObservationLister
	instanceID   string
	startedOn    time.Time
}

func NewMetricsHandler(
	registry *prometheus.Registry,
	observations ObservationLister,
) *MetricsHandler {
	return &MetricsHandler{
		metrics: echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			// a gather/encode failure must surface as a scrape error,
			// not as a partial exposition the scraper ingests silently
			ErrorHandling: promhttp.HTTPErrorOnError,
		})),
		observations: observations,
		instanceID:   uuid.NewString(),
		startedOn:    time.Now().UTC(),
	}
}

// GetMetrics serves the Prometheus text exposition of the provider's
// registry. Gauges are set by the background refresh jobs; a scrape
// performs no network I/O.
func (h *MetricsHandler) GetMetrics(c echo.Context) error {
	return h.metrics(c)
}

type CollectorStatus struct {
	Collector   string    `json:"collector"`
	LastRefresh time.Time `json:"last_refresh"`
	DurationMs  int64     `json:"duration_ms"`
	Success     bool      `json:"success"`
	Detail      *string   `json:"detail,omitempty"`
}

type StatusResponse struct {
	InstanceID    string            `json:"instance_id"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Collectors    []CollectorStatus `json:"collectors"`
}

// GetStatus reports the instance id, uptime and the latest refresh
// observation per collector.
func (h *MetricsHandler) GetStatus(c echo.Context) error {
	latest, err := h.observations.LatestObservations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(
			http.StatusInternalServerError, "unable to read observations",
		).WithInternal(err)
	}

	collectors := make([]CollectorStatus, 0, len(latest))
	for _, o := range latest {
		collectors = append(collectors, CollectorStatus{
			Collector:   o.Collector,
			LastRefresh: o.StartedOn,
			DurationMs:  o.DurationMs,
			Success:     o.Success,
			Detail:      o.Detail,
		})
	}

	return c.JSON(http.StatusOK, StatusResponse{
		InstanceID:    h.instanceID,
		UptimeSeconds: int64(time.Since(h.startedOn).Seconds()),
		Collectors:    collectors,
	})
}

// GetLiveness answers every path the gated routes don't claim, so
// orchestrator health checks need no credentials.
func (h *MetricsHandler) GetLiveness(c echo.Context) error {
	return c.String(http.StatusOK, "Yep, we're running..")
}
