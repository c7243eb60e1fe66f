// Package failures aggregates job-history data into per-job failure
// summaries and multi-release comparison matrices.
package failures

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslutsky/microshift-misc/pkg/api"
	"github.com/eslutsky/microshift-misc/pkg/jobhistory"
)

// Aggregator computes per-job failure summaries from the job-history
// pipeline.
type Aggregator struct {
	history *jobhistory.Client
	now     func() time.Time
	log     *logrus.Entry
}

func NewAggregator(history *jobhistory.Client) *Aggregator {
	return &Aggregator{
		history: history,
		now:     time.Now,
		log:     logrus.WithField("component", "failure-aggregator"),
	}
}

// Summarize counts a job's FAILURE builds inside the trailing window and
// enriches the most recent one with its resolved artifacts location and any
// related pull requests. The window is evaluated against a single snapshot of
// "now" taken at the start of the call.
//
// A job whose fetch or extraction fails yields a zero summary together with
// the error, so batch callers can count the failure while single-job callers
// log it and move on; at the data level a failed job is indistinguishable
// from a job with no failures.
func (a *Aggregator) Summarize(jobName string, hoursBack int, useCache bool) (api.FailureSummary, error) {
	summary := api.FailureSummary{JobName: jobName, FailureDetails: []api.FailureDetail{}}

	builds, err := a.history.JobHistory(jobName, useCache)
	if err != nil {
		return summary, err
	}

	// Dashboard order is reverse-chronological and is preserved here.
	now := a.now()
	var inWindow []api.Build
	for _, build := range builds {
		if build.Failed() && jobhistory.WithinWindow(build.Started, hoursBack, now) {
			inWindow = append(inWindow, build)
		}
	}

	summary.TotalFailures = len(inWindow)
	for _, build := range inWindow {
		summary.FailureDetails = append(summary.FailureDetails, api.FailureDetail{
			ID:       build.ID,
			Result:   build.Result,
			Started:  build.Started,
			Duration: build.Duration,
		})
	}
	if len(inWindow) == 0 {
		return summary, nil
	}

	latest := inWindow[0]
	enriched := &api.LatestFailure{
		ID:                  latest.ID,
		JobName:             jobName,
		Result:              latest.Result,
		Started:             latest.Started,
		Duration:            latest.Duration,
		DetailLink:          a.history.AbsoluteURL(latest.SpyglassLink),
		RelatedPullRequests: latest.PullNumbers(),
	}
	if latest.SpyglassLink != "" {
		enriched.ArtifactsURL = a.history.ResolveArtifactsURL(latest.SpyglassLink)
	}
	summary.LatestFailure = enriched
	return summary, nil
}
