package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rust-lang/monitorbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockObservationLister struct {
	mock.Mock
}

func (m *MockObservationLister) LatestObservations(
	ctx context.Context,
) ([]store.Observation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Observation), args.Error(1)
}

func newTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "monitorbot_github_rate_limit",
		Name:      "remaining",
		Help:      "GitHub API remaining rate limit",
	}, []string{"username", "product"})
	gauge.WithLabelValues("bors", "core").Set(4321)
	if err := registry.Register(gauge); err != nil {
		t.Fatal(err)
	}
	return registry
}

func newTestServer(lister ObservationLister, registry *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h := NewMetricsHandler(registry, lister)
	gated := e.Group("", SecretAuth("test-secret"))
	gated.GET("/metrics", h.GetMetrics)
	gated.GET("/status", h.GetStatus)
	e.RouteNotFound("/*", h.GetLiveness)
	return e
}

func TestMetricsHandler_GetMetrics(t *testing.T) {
	t.Run("success - exposition served with valid secret", func(t *testing.T) {
		// arrange
		e := newTestServer(new(MockObservationLister), newTestRegistry(t))
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set(echo.HeaderAuthorization, "test-secret")
		rec := httptest.NewRecorder()

		// act
		e.ServeHTTP(rec, req)

		// assert
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(
			t, rec.Body.String(),
			`monitorbot_github_rate_limit_remaining{product="core",username="bors"} 4321`,
		)
	})

	t.Run("failure - missing secret is rejected before the registry", func(t *testing.T) {
		// arrange
		e := newTestServer(new(MockObservationLister), newTestRegistry(t))
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()

		// act
		e.ServeHTTP(rec, req)

		// assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotContains(t, rec.Body.String(), "monitorbot_github_rate_limit")
	})

	t.Run("failure - wrong secret is rejected", func(t *testing.T) {
		// arrange
		e := newTestServer(new(MockObservationLister), newTestRegistry(t))
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.Header.Set(echo.HeaderAuthorization, "guess")
		rec := httptest.NewRecorder()

		// act
		e.ServeHTTP(rec, req)

		// assert
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestMetricsHandler_GetStatus(t *testing.T) {
	t.Run("success - latest observation per collector reported", func(t *testing.T) {
		// arrange
		lister := new(MockObservationLister)
		detail := "api unavailable"
		lister.On("LatestObservations", mock.Anything).Return([]store.Observation{
			{
				ObservationID: 12,
				Collector:     "gha_runners",
				StartedOn:     time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
				DurationMs:    95,
				Success:       false,
				Detail:        &detail,
			},
			{
				ObservationID: 13,
				Collector:     "github_rate_limit",
				StartedOn:     time.Date(2026, 8, 25, 9, 1, 0, 0, time.UTC),
				DurationMs:    310,
				Success:       true,
			},
		}, nil)
		e := newTestServer(lister, newTestRegistry(t))
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set(echo.HeaderAuthorization, "test-secret")
		rec := httptest.NewRecorder()

		// act
		e.ServeHTTP(rec, req)

		// assert
		assert.Equal(t, http.StatusOK, rec.Code)
		var status StatusResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.NotEmpty(t, status.InstanceID)
		assert.Len(t, status.Collectors, 2)
		assert.Equal(t, "gha_runners", status.Collectors[0].Collector)
		assert.False(t, status.Collectors[0].Success)
		assert.Equal(t, &detail, status.Collectors[0].Detail)
		assert.True(t, status.Collectors[1].Success)
		assert.Nil(t, status.Collectors[1].Detail)
	})

	t.Run("failure - store error maps to 500", func(t *testing.T) {
		// arrange
		lister := new(MockObservationLister)
		lister.On("LatestObservations", mock.Anything).
			Return(nil, errors.New("database is locked"))
		e := newTestServer(lister, newTestRegistry(t))
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set(echo.HeaderAuthorization, "test-secret")
		rec := httptest.NewRecorder()

		// act
		e.ServeHTTP(rec, req)

		// assert
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestMetricsHandler_GetLiveness(t *testing.T) {
	t.Run("success - unclaimed paths answer without credentials", func(t *testing.T) {
		for _, path := range []string{"/", "/healthz", "/anything/else"} {
			// arrange
			e := newTestServer(new(MockObservationLister), newTestRegistry(t))
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()

			// act
			e.ServeHTTP(rec, req)

			// assert
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "Yep, we're running..", rec.Body.String())
		}
	})
}
