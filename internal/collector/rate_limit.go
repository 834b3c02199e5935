package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rust-lang/monitorbot/internal/gh"
)

const rateLimitNamespace = "monitorbot_github_rate_limit"

// RateLimitAPI is the slice of the GitHub API the rate limit collector
// needs for one token.
type RateLimitAPI interface {
	Username(ctx context.Context) (string, error)
	RateLimits(ctx context.Context) (map[string]gh.Rate, error)
}

type tokenUser struct {
	name string
	api  RateLimitAPI
}

// GitHubRateLimit exports the remaining API budget of every configured
// token, labeled by username and GitHub product. Products are created
// on first sight, so budgets for new GitHub APIs appear without a
// code change.
type GitHubRateLimit struct {
	users []tokenUser

	limit     *prometheus.GaugeVec
	remaining *prometheus.GaugeVec
	reset     *prometheus.GaugeVec
}

// NewGitHubRateLimit resolves each token to its username up front.
// A token that cannot be resolved fails construction: exporting budget
// series without a username label would be unattributable.
func NewGitHubRateLimit(ctx context.Context, apis []RateLimitAPI) (*GitHubRateLimit, error) {
	users := make([]tokenUser, 0, len(apis))
	for _, api := range apis {
		name, err := api.Username(ctx)
		if err != nil {
			return nil, fmt.Errorf("unable to get username for rate limit stats: %w", err)
		}
		users = append(users, tokenUser{name: name, api: api})
	}

	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: rateLimitNamespace,
			Name:      name,
			Help:      help,
		}, []string{"username", "product"})
	}

	return &GitHubRateLimit{
		users:     users,
		limit:     gauge("limit", "GitHub API total rate limit"),
		remaining: gauge("remaining", "GitHub API remaining rate limit"),
		reset:     gauge("reset", "GitHub API rate limit reset time"),
	}, nil
}

func (c *GitHubRateLimit) Name() string {
	return "github_rate_limit"
}

// Usernames returns the logins the collector reports on, in token order.
func (c *GitHubRateLimit) Usernames() []string {
	names := make([]string, len(c.users))
	for i, u := range c.users {
		names[i] = u.name
	}
	return names
}

// Update refreshes every user's budget. One failing token does not
// block the others; their errors are joined and reported together.
func (c *GitHubRateLimit) Update(ctx context.Context) error {
	var errs []error
	for _, user := range c.users {
		rates, err := user.api.RateLimits(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", user.name, err))
			continue
		}
		for product, rate := range rates {
			c.limit.WithLabelValues(user.name, product).Set(float64(rate.Limit))
			c.remaining.WithLabelValues(user.name, product).Set(float64(rate.Remaining))
			c.reset.WithLabelValues(user.name, product).Set(float64(rate.Reset))
		}
	}
	return errors.Join(errs...)
}

func (c *GitHubRateLimit) Metrics() []prometheus.Collector {
	return []prometheus.Collector{c.limit, c.remaining, c.reset}
}
