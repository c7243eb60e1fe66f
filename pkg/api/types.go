package api

import (
	"time"
)

// Build results as reported by the Prow job-history page. Anything the
// dashboard emits outside of these two values (aborted, pending, ...) is
// treated as "other" and never counted as a failure.
const (
	ResultSuccess = "SUCCESS"
	ResultFailure = "FAILURE"
)

// Build is one entry of the allBuilds array embedded in a job-history page.
// Field names and casing follow the dashboard's wire format so the same type
// decodes the page and round-trips through the cache.
type Build struct {
	ID           string `json:"ID"`
	Result       string `json:"Result"`
	Started      string `json:"Started,omitempty"`
	Duration     string `json:"Duration,omitempty"`
	SpyglassLink string `json:"SpyglassLink,omitempty"`
	Refs         *Refs  `json:"Refs,omitempty"`
}

// Failed reports whether the build ended in an explicit FAILURE.
func (b Build) Failed() bool {
	return b.Result == ResultFailure
}

// PullNumbers returns the pull request numbers referenced by the build, if
// the run was triggered by any.
func (b Build) PullNumbers() []int {
	if b.Refs == nil {
		return nil
	}
	var numbers []int
	for _, pull := range b.Refs.Pulls {
		if pull.Number != 0 {
			numbers = append(numbers, pull.Number)
		}
	}
	return numbers
}

// Refs mirrors the source-control reference metadata Prow attaches to a run.
type Refs struct {
	Org   string `json:"org,omitempty"`
	Repo  string `json:"repo,omitempty"`
	Pulls []Pull `json:"pulls,omitempty"`
}

type Pull struct {
	Number int    `json:"number"`
	Author string `json:"author,omitempty"`
	SHA    string `json:"sha,omitempty"`
}

// CachedHistory is the persisted snapshot of one job's build history. Builds
// keep the dashboard's reverse-chronological order and are never re-sorted.
type CachedHistory struct {
	JobName  string    `json:"jobName"`
	CachedAt time.Time `json:"cachedAt"`
	Builds   []Build   `json:"builds"`
}

// FailureSummary aggregates one job's failures inside a time window.
type FailureSummary struct {
	JobName        string          `json:"jobName"`
	TotalFailures  int             `json:"totalFailures"`
	LatestFailure  *LatestFailure  `json:"latestFailure,omitempty"`
	FailureDetails []FailureDetail `json:"failureDetails"`
}

// LatestFailure is the most recent in-window failure, enriched with the
// resolved artifacts location and any related pull requests. Enrichment
// copies the build; the underlying Build is never mutated.
type LatestFailure struct {
	ID                  string `json:"id"`
	JobName             string `json:"jobName"`
	Result              string `json:"result"`
	Started             string `json:"started"`
	Duration            string `json:"duration"`
	DetailLink          string `json:"detailLink,omitempty"`
	ArtifactsURL        string `json:"artifactsUrl,omitempty"`
	RelatedPullRequests []int  `json:"relatedPullRequests,omitempty"`
}

// FailureDetail is one unenriched in-window failure.
type FailureDetail struct {
	ID       string `json:"id"`
	Result   string `json:"result"`
	Started  string `json:"started"`
	Duration string `json:"duration"`
}

// ReleaseMatrix is the job x release failure-count table. Only its per-job
// constituents are ever cached; the matrix itself is rebuilt per report.
type ReleaseMatrix struct {
	JobNames []string                             `json:"jobNames"`
	Releases []string                             `json:"releases"`
	Matrix   map[string]map[string]FailureSummary `json:"matrix"`
	Stats    BatchStats                           `json:"stats"`
}

// BatchStats reports how a batch over many jobs went. Failed cells are still
// present in the output as zero-failure summaries.
type BatchStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
