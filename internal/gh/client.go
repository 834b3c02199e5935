// Package gh wraps the GitHub API operations monitorbot depends on:
// resolving a token to its username, reading rate limit budgets and
// listing GitHub Actions runners.
package gh

import (
	"context"
	"fmt"

	"github.com/google/go-github/v61/github"
	"github.com/rust-lang/monitorbot/internal"
	"golang.org/x/oauth2"
)

type Client struct {
	gh *github.Client
}

// NewClient builds an authenticated client for a single token.
func NewClient(token string) *Client {
	tc := oauth2.NewClient(
		context.Background(),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
	)
	c := github.NewClient(tc)
	c.UserAgent = internal.UserAgent
	return &Client{gh: c}
}

func newClient(gh *github.Client) *Client {
	gh.UserAgent = internal.UserAgent
	return &Client{gh: gh}
}

// Username resolves the login of the user the client's token belongs to.
func (c *Client) Username(ctx context.Context) (string, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("unable to get token username: %w", err)
	}
	return u.GetLogin(), nil
}

// Rate is one product's budget from the rate_limit endpoint.
type Rate struct {
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// RateLimits returns the rate limit budget per GitHub product. The
// response is decoded as a dynamic map so products GitHub adds later
// show up without a code change.
func (c *Client) RateLimits(ctx context.Context) (map[string]Rate, error) {
	req, err := c.gh.NewRequest("GET", "rate_limit", nil)
	if err != nil {
		return nil, err
	}

	var body struct {
		Resources map[string]Rate `json:"resources"`
	}
	if _, err := c.gh.Do(ctx, req, &body); err != nil {
		return nil, fmt.Errorf("unable to get rate limit stats: %w", err)
	}
	return body.Resources, nil
}

// Runner is the status of one GitHub Actions self-hosted runner.
type Runner struct {
	ID     int64
	Name   string
	OS     string
	Status string
	Busy   bool
}

// Runners lists the Actions runners registered on owner/repo.
func (c *Client) Runners(ctx context.Context, owner, repo string) ([]Runner, error) {
	resp, _, err := c.gh.Actions.ListRunners(ctx, owner, repo, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to list runners for %s/%s: %w", owner, repo, err)
	}

	runners := make([]Runner, 0, len(resp.Runners))
	for _, r := range resp.Runners {
		runners = append(runners, Runner{
			ID:     r.GetID(),
			Name:   r.GetName(),
			OS:     r.GetOS(),
			Status: r.GetStatus(),
			Busy:   r.GetBusy(),
		})
	}
	return runners, nil
}
