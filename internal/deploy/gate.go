// Package deploy implements the final step of the CI pipeline: decide
// whether the triggering event qualifies for a deploy, upload the built
// image to ECR and force a rolling redeploy of the ECS service.
package deploy

import (
	"fmt"
	"os"
)

// Event is the CI event that triggered the pipeline, as exposed by the
// runner's environment.
type Event struct {
	// Name is the event type, e.g. "push" or "pull_request".
	Name string
	// Repository is the owner/repo slug the workflow runs in. For a
	// pull request from a fork this is still the base repository, but
	// fork PRs arrive as "pull_request" events and never qualify; a
	// push to a fork carries the fork's own slug.
	Repository string
	// Ref is the fully qualified git ref, e.g. "refs/heads/master".
	Ref string
}

func EventFromEnv() Event {
	return Event{
		Name:       os.Getenv("GITHUB_EVENT_NAME"),
		Repository: os.Getenv("GITHUB_REPOSITORY"),
		Ref:        os.Getenv("GITHUB_REF"),
	}
}

// Rule is the deploy gate: only pushes to Branch of the canonical
// Repository may deploy.
type Rule struct {
	Repository string
	Branch     string
}

func (r Rule) BranchRef() string {
	return "refs/heads/" + r.Branch
}

// SkipReason returns why the event does not qualify for a deploy, or
// the empty string if it does. A non-empty reason is an expected skip,
// not a failure.
func (r Rule) SkipReason(e Event) string {
	switch {
	case e.Name != "push":
		return fmt.Sprintf("event %q is not a push", e.Name)
	case e.Repository != r.Repository:
		return fmt.Sprintf("repository %q is not %s", e.Repository, r.Repository)
	case e.Ref != r.BranchRef():
		return fmt.Sprintf("ref %q is not %s", e.Ref, r.BranchRef())
	default:
		return ""
	}
}

func (r Rule) Qualifies(e Event) bool {
	return r.SkipReason(e) == ""
}
