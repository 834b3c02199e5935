package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rust-lang/monitorbot/internal/gh"
)

const runnersNamespace = "gha_runner"

// RunnersAPI is the slice of the GitHub API the runners collector needs.
type RunnersAPI interface {
	Runners(ctx context.Context, owner, repo string) ([]gh.Runner, error)
}

type trackedRepo struct {
	owner, name string
}

func (r trackedRepo) String() string {
	return r.owner + "/" + r.name
}

// GithubRunners exports online/busy status for the self-hosted Actions
// runners of the tracked repositories.
type GithubRunners struct {
	api   RunnersAPI
	repos []trackedRepo

	online *prometheus.GaugeVec
	busy   *prometheus.GaugeVec
}

func NewGithubRunners(api RunnersAPI, repos []string) (*GithubRunners, error) {
	tracked := make([]trackedRepo, 0, len(repos))
	for _, slug := range repos {
		owner, name, ok := strings.Cut(slug, "/")
		if !ok || owner == "" || name == "" {
			return nil, fmt.Errorf("invalid runners repo %q, expected owner/repo", slug)
		}
		tracked = append(tracked, trackedRepo{owner: owner, name: name})
	}

	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: runnersNamespace,
			Name:      name,
			Help:      help,
		}, []string{"repo", "runner"})
	}

	return &GithubRunners{
		api:    api,
		repos:  tracked,
		online: gauge("online", "runner is online."),
		busy:   gauge("busy", "runner is busy."),
	}, nil
}

func (c *GithubRunners) Name() string {
	return "gha_runners"
}

// Update replaces the exported series wholesale, so runners that were
// deregistered since the last refresh disappear instead of reporting a
// stale status. On any listing error the previous data is kept.
func (c *GithubRunners) Update(ctx context.Context) error {
	type sample struct {
		repo, runner string
		online, busy float64
	}

	samples := make([]sample, 0)
	for _, repo := range c.repos {
		runners, err := c.api.Runners(ctx, repo.owner, repo.name)
		if err != nil {
			return err
		}
		for _, r := range runners {
			s := sample{repo: repo.String(), runner: r.Name}
			if r.Status == "online" {
				s.online = 1
			}
			if r.Busy {
				s.busy = 1
			}
			samples = append(samples, s)
		}
	}

	c.online.Reset()
	c.busy.Reset()
	for _, s := range samples {
		c.online.WithLabelValues(s.repo, s.runner).Set(s.online)
		c.busy.WithLabelValues(s.repo, s.runner).Set(s.busy)
	}
	return nil
}

func (c *GithubRunners) Metrics() []prometheus.Collector {
	return []prometheus.Collector{c.online, c.busy}
}
