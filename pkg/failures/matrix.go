package failures

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eslutsky/microshift-misc/pkg/api"
)

const (
	// Periodic job names follow a fixed convention:
	// <prefix>-<release>-<infix>-<short name>.
	defaultJobPrefix = "periodic-ci-openshift-microshift-release"
	defaultJobInfix  = "periodics"

	// DefaultMaxConcurrency bounds the worker pool. Each cell costs up to two
	// sequential HTTP round trips, so a small pool already hides most of the
	// batch latency without hammering the dashboard.
	DefaultMaxConcurrency = 4
)

// FullJobName builds the fully-qualified periodic job name for a short job
// name and release.
func FullJobName(jobName, release string) string {
	return fmt.Sprintf("%s-%s-%s-%s", defaultJobPrefix, release, defaultJobInfix, jobName)
}

// MatrixBuilder fans the aggregator out over every (job, release) cell.
type MatrixBuilder struct {
	aggregator     *Aggregator
	maxConcurrency int
	log            *logrus.Entry
}

func NewMatrixBuilder(aggregator *Aggregator) *MatrixBuilder {
	return &MatrixBuilder{
		aggregator:     aggregator,
		maxConcurrency: DefaultMaxConcurrency,
		log:            logrus.WithField("component", "matrix-builder"),
	}
}

// WithMaxConcurrency overrides the worker-pool bound. Values below one
// serialize the batch.
func (m *MatrixBuilder) WithMaxConcurrency(n int) *MatrixBuilder {
	if n < 1 {
		n = 1
	}
	m.maxConcurrency = n
	return m
}

// BuildMatrix fills one failure summary per (job, release) cell. The job list
// is shared across all releases; cells are mutually independent and run on
// the bounded pool. A failed cell is recorded as a zero-failure summary and
// counted in the stats instead of aborting the batch, and no cell is ever
// missing from the result.
func (m *MatrixBuilder) BuildMatrix(jobNames, releases []string, hoursBack int, useCache bool) api.ReleaseMatrix {
	matrix := api.ReleaseMatrix{
		JobNames: jobNames,
		Releases: releases,
		Matrix:   map[string]map[string]api.FailureSummary{},
	}
	for _, release := range releases {
		matrix.Matrix[release] = map[string]api.FailureSummary{}
	}

	var lock sync.Mutex
	group := errgroup.Group{}
	group.SetLimit(m.maxConcurrency)
	for _, release := range releases {
		for _, jobName := range jobNames {
			release, jobName := release, jobName
			group.Go(func() error {
				summary, err := m.aggregator.Summarize(FullJobName(jobName, release), hoursBack, useCache)
				lock.Lock()
				defer lock.Unlock()
				matrix.Stats.Processed++
				if err != nil {
					matrix.Stats.Failed++
					m.log.WithError(err).WithFields(logrus.Fields{"job": jobName, "release": release}).
						Warn("Could not summarize job, recording zero failures.")
				} else {
					matrix.Stats.Succeeded++
				}
				matrix.Matrix[release][jobName] = summary
				return nil
			})
		}
	}
	// Workers never return errors; failures are folded into the stats.
	_ = group.Wait()
	return matrix
}

// SummarizeAll aggregates every job for a single release, in the order the
// job list was given. Like the matrix, per-job failures degrade to zero
// summaries and are tallied in the stats.
func (m *MatrixBuilder) SummarizeAll(jobNames []string, release string, hoursBack int, useCache bool) ([]api.FailureSummary, api.BatchStats) {
	summaries := make([]api.FailureSummary, len(jobNames))
	var stats api.BatchStats
	var lock sync.Mutex

	group := errgroup.Group{}
	group.SetLimit(m.maxConcurrency)
	for i, jobName := range jobNames {
		i, jobName := i, jobName
		group.Go(func() error {
			summary, err := m.aggregator.Summarize(FullJobName(jobName, release), hoursBack, useCache)
			lock.Lock()
			defer lock.Unlock()
			stats.Processed++
			if err != nil {
				stats.Failed++
				m.log.WithError(err).WithField("job", jobName).Warn("Could not summarize job, recording zero failures.")
			} else {
				stats.Succeeded++
			}
			summaries[i] = summary
			return nil
		})
	}
	_ = group.Wait()
	return summaries, stats
}
