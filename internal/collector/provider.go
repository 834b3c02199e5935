// Package collector holds the metric sources monitorbot exports:
// GitHub API rate limit budgets and GitHub Actions runner status.
// Collectors refresh in the background; a scrape only reads gauges.
package collector

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// A Collector keeps a set of gauges current by polling an upstream API.
type Collector interface {
	// Name identifies the collector in logs and refresh observations.
	Name() string
	// Update fetches fresh data and sets the exported gauges.
	Update(ctx context.Context) error
	// Metrics returns the gauges to register with the provider.
	Metrics() []prometheus.Collector
}

// Provider owns the registry the /metrics endpoint gathers from. A
// dedicated registry keeps Go runtime and process metrics out of the
// exposition, which carries only what the collectors publish.
type Provider struct {
	registry *prometheus.Registry
}

func NewProvider() *Provider {
	return &Provider{registry: prometheus.NewRegistry()}
}

func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Provider) Register(c Collector) error {
	for _, m := range c.Metrics() {
		if err := p.registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}
