// Package pullrequests lists open pull requests whose checks are failing or
// still running, by shelling out to the authenticated gh CLI.
package pullrequests

import (
	"encoding/json"
	"fmt"

	gh "github.com/cli/go-gh/v2"
)

// Check states in a statusCheckRollup that mean the PR needs attention.
const (
	StateFailure = "FAILURE"
	StatePending = "PENDING"
)

type PullRequest struct {
	Number            int           `json:"number"`
	Title             string        `json:"title"`
	HeadRefName       string        `json:"headRefName"`
	Author            Author        `json:"author"`
	StatusCheckRollup []StatusCheck `json:"statusCheckRollup"`
}

type Author struct {
	Login string `json:"login"`
}

// StatusCheck is one entry of gh's statusCheckRollup. Commit statuses carry
// context/state/targetUrl; check runs carry name/status/conclusion. Only the
// status-shaped fields drive the failure signal, matching what Prow reports.
type StatusCheck struct {
	Context    string `json:"context,omitempty"`
	State      string `json:"state,omitempty"`
	TargetURL  string `json:"targetUrl,omitempty"`
	Name       string `json:"name,omitempty"`
	Status     string `json:"status,omitempty"`
	Conclusion string `json:"conclusion,omitempty"`
}

// HasIssues reports whether any check on the PR has failed or is still
// running.
func (p PullRequest) HasIssues() bool {
	for _, check := range p.StatusCheckRollup {
		if check.State == StateFailure || check.State == StatePending {
			return true
		}
	}
	return false
}

// FailedChecks returns the checks that ended in failure, in rollup order.
func (p PullRequest) FailedChecks() []StatusCheck {
	return p.checksInState(StateFailure)
}

// RunningChecks returns the checks that are still pending, in rollup order.
func (p PullRequest) RunningChecks() []StatusCheck {
	return p.checksInState(StatePending)
}

func (p PullRequest) checksInState(state string) []StatusCheck {
	var checks []StatusCheck
	for _, check := range p.StatusCheckRollup {
		if check.State == state {
			checks = append(checks, check)
		}
	}
	return checks
}

// ListOpen returns the repository's open pull requests with their check
// rollups. A gh failure is fatal for the PR surface only; the periodic-job
// pipeline does not depend on it.
func ListOpen(org, repo string) ([]PullRequest, error) {
	stdout, stderr, err := gh.Exec(
		"pr", "list",
		"--state", "open",
		"--json", "number,title,headRefName,author,statusCheckRollup",
		"--repo", fmt.Sprintf("%s/%s", org, repo),
	)
	if err != nil {
		return nil, fmt.Errorf("gh pr list failed: %w: %s", err, stderr.String())
	}
	var prs []PullRequest
	if err := json.Unmarshal(stdout.Bytes(), &prs); err != nil {
		return nil, fmt.Errorf("could not parse gh pr list output: %w", err)
	}
	return prs, nil
}

// WithIssues filters the given pull requests down to those with failing or
// running checks.
func WithIssues(prs []PullRequest) []PullRequest {
	var flagged []PullRequest
	for _, pr := range prs {
		if pr.HasIssues() {
			flagged = append(flagged, pr)
		}
	}
	return flagged
}
