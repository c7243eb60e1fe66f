package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"sigs.k8s.io/prow/pkg/flagutil"
	"sigs.k8s.io/prow/pkg/interrupts"
	"sigs.k8s.io/prow/pkg/logrusutil"

	"github.com/eslutsky/microshift-misc/pkg/api"
	"github.com/eslutsky/microshift-misc/pkg/failures"
	"github.com/eslutsky/microshift-misc/pkg/httphelper"
	"github.com/eslutsky/microshift-misc/pkg/jobhistory"
	"github.com/eslutsky/microshift-misc/pkg/jobsource"
	"github.com/eslutsky/microshift-misc/pkg/pullrequests"
	"github.com/eslutsky/microshift-misc/pkg/report"
)

const (
	modePRs       = "prs"
	modePeriodics = "periodics"
	modeCount     = "count"
	modeRefresh   = "refresh"
)

type options struct {
	logLevel string
	mode     string

	jobName   string
	releases  flagutil.Strings
	hoursBack int
	configURL string

	org  string
	repo string

	cacheDir       string
	cacheMaxAge    time.Duration
	noCache        bool
	clearCache     bool
	maxConcurrency int

	jsonOutput   bool
	htmlFile     string
	noHyperlinks bool

	serve       bool
	port        int
	gracePeriod time.Duration
}

func gatherOptions() (options, error) {
	o := options{releases: flagutil.NewStrings("4.21")}
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&o.logLevel, "log-level", "info", "Level at which to log output.")
	fs.StringVar(&o.mode, "mode", modePRs, "One of 'prs' (GitHub PRs with failing checks), 'periodics' (latest periodic failures), 'count' (failure counts, matrix when several --release values are given), 'refresh' (refetch cached job data).")
	fs.StringVar(&o.jobName, "job-name", "", "Restrict periodic modes to a single short job name instead of the configured list.")
	fs.Var(&o.releases, "release", "Release branch to monitor. Can be passed multiple times for a multi-release matrix.")
	fs.IntVar(&o.hoursBack, "hours-back", 12, "Only count builds started within the last N hours.")
	fs.StringVar(&o.configURL, "config-url", jobsource.DefaultConfigURL, "URL of the prowgen config that lists the periodic jobs.")
	fs.StringVar(&o.org, "org", "openshift", "GitHub organization for PR mode.")
	fs.StringVar(&o.repo, "repo", "microshift", "GitHub repository for PR mode.")
	fs.StringVar(&o.cacheDir, "cache-dir", "", "Directory for cached job histories. Defaults to <user cache dir>/prow-job-monitor.")
	fs.DurationVar(&o.cacheMaxAge, "cache-max-age", jobhistory.DefaultCacheMaxAge, "Maximum age before a cached job history is refetched.")
	fs.BoolVar(&o.noCache, "no-cache", false, "Always fetch fresh data from the dashboard.")
	fs.BoolVar(&o.clearCache, "clear-cache", false, "Clear all cached data before running.")
	fs.IntVar(&o.maxConcurrency, "max-concurrency", failures.DefaultMaxConcurrency, "Number of jobs fetched in parallel.")
	fs.BoolVar(&o.jsonOutput, "json", false, "Emit the report as JSON instead of text.")
	fs.StringVar(&o.htmlFile, "html", "", "Write an HTML report to this file (count mode).")
	fs.BoolVar(&o.noHyperlinks, "no-hyperlinks", false, "Disable terminal hyperlinks, show full URLs instead.")
	fs.BoolVar(&o.serve, "serve", false, "Serve live reports over HTTP instead of printing once.")
	fs.IntVar(&o.port, "port", 8080, "Port for the report server.")
	fs.DurationVar(&o.gracePeriod, "grace-period", 10*time.Second, "Grace period for server shutdown.")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return o, fmt.Errorf("failed to parse flags: %w", err)
	}
	return o, nil
}

func (o *options) validate() error {
	if _, err := logrus.ParseLevel(o.logLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	switch o.mode {
	case modePRs, modePeriodics, modeCount, modeRefresh:
	default:
		return fmt.Errorf("invalid --mode %q", o.mode)
	}
	if o.hoursBack <= 0 {
		return fmt.Errorf("--hours-back must be positive")
	}
	if len(o.releases.Strings()) == 0 {
		return fmt.Errorf("at least one --release is required")
	}
	return nil
}

// jobList resolves the short names of the jobs to monitor. An empty list is
// fatal for every periodic mode: there is nothing to iterate.
func jobList(o options) ([]string, error) {
	if o.jobName != "" {
		return []string{o.jobName}, nil
	}
	return jobsource.JobNames(o.configURL)
}

func runPRs(o options) error {
	prs, err := pullrequests.ListOpen(o.org, o.repo)
	if err != nil {
		return err
	}
	flagged := pullrequests.WithIssues(prs)
	if o.jsonOutput {
		return report.WriteJSON(os.Stdout, flagged)
	}
	if len(flagged) == 0 {
		fmt.Printf("No open PRs with failed or running tests in %s/%s.\n", o.org, o.repo)
		return nil
	}
	for _, pr := range flagged {
		url := fmt.Sprintf("https://github.com/%s/%s/pull/%d", o.org, o.repo, pr.Number)
		fmt.Printf("%s - %s\n", report.Hyperlink(url, fmt.Sprintf("PR #%d", pr.Number), !o.noHyperlinks), pr.Title)
		fmt.Printf("  author: %s branch: %s\n", pr.Author.Login, pr.HeadRefName)
		for _, check := range pr.FailedChecks() {
			fmt.Printf("  failed:  %s\n", report.Hyperlink(check.TargetURL, check.Context, !o.noHyperlinks))
		}
		for _, check := range pr.RunningChecks() {
			fmt.Printf("  running: %s\n", report.Hyperlink(check.TargetURL, check.Context, !o.noHyperlinks))
		}
	}
	return nil
}

func runPeriodics(o options, builder *failures.MatrixBuilder) error {
	jobNames, err := jobList(o)
	if err != nil {
		return err
	}
	release := o.releases.Strings()[0]
	summaries, stats := builder.SummarizeAll(jobNames, release, o.hoursBack, !o.noCache)
	if o.jsonOutput {
		return report.WriteJSON(os.Stdout, summaries)
	}
	found := 0
	for _, summary := range summaries {
		if summary.LatestFailure == nil {
			continue
		}
		found++
		report.WriteLatestFailure(os.Stdout, summary.LatestFailure, !o.noHyperlinks)
		fmt.Println()
	}
	fmt.Printf("%d of %d jobs have failures in the last %dh (processed=%d succeeded=%d failed=%d)\n",
		found, len(jobNames), o.hoursBack, stats.Processed, stats.Succeeded, stats.Failed)
	return nil
}

func runCount(o options, builder *failures.MatrixBuilder) error {
	jobNames, err := jobList(o)
	if err != nil {
		return err
	}
	releases := o.releases.Strings()
	matrix := builder.BuildMatrix(jobNames, releases, o.hoursBack, !o.noCache)
	if o.htmlFile != "" {
		f, err := os.Create(o.htmlFile)
		if err != nil {
			return fmt.Errorf("could not create %s: %w", o.htmlFile, err)
		}
		defer f.Close()
		if err := report.WriteMatrixHTML(f, matrix, o.hoursBack); err != nil {
			return err
		}
		logrus.Infof("Wrote HTML report to %s", o.htmlFile)
		return nil
	}
	if o.jsonOutput {
		return report.WriteJSON(os.Stdout, matrix)
	}
	if len(releases) == 1 {
		// A single release reads better as a flat table.
		summaries := make([]api.FailureSummary, 0, len(jobNames))
		for _, jobName := range jobNames {
			summaries = append(summaries, matrix.Matrix[releases[0]][jobName])
		}
		report.WriteSummaries(os.Stdout, summaries, o.hoursBack, !o.noHyperlinks)
		fmt.Printf("processed=%d succeeded=%d failed=%d\n",
			matrix.Stats.Processed, matrix.Stats.Succeeded, matrix.Stats.Failed)
		return nil
	}
	report.WriteMatrix(os.Stdout, matrix, o.hoursBack)
	return nil
}

func runRefresh(o options, cache *jobhistory.Cache, history *jobhistory.Client) error {
	jobNames, err := jobList(o)
	if err != nil {
		return err
	}
	refreshed := 0
	for _, jobName := range jobNames {
		for _, release := range o.releases.Strings() {
			fullName := failures.FullJobName(jobName, release)
			if err := cache.Invalidate(fullName); err != nil {
				logrus.WithError(err).WithField("job", fullName).Warn("Could not invalidate cache entry.")
			}
			if _, err := history.JobHistory(fullName, true); err != nil {
				logrus.WithError(err).WithField("job", fullName).Warn("Could not refresh job history.")
				continue
			}
			refreshed++
		}
	}
	logrus.Infof("Refreshed %d job histories", refreshed)
	return nil
}

// serveReports re-runs the pipeline on every request so the feed is never
// staler than the cache allows.
func serveReports(o options, builder *failures.MatrixBuilder) {
	metrics := httphelper.NewMetrics("prow_job_monitor")
	buildMatrix := func() (api.ReleaseMatrix, error) {
		jobNames, err := jobList(o)
		if err != nil {
			return api.ReleaseMatrix{}, err
		}
		return builder.BuildMatrix(jobNames, o.releases.Strings(), o.hoursBack, !o.noCache), nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/failures.json", metrics.HandleWithMetrics(func(w http.ResponseWriter, r *http.Request) {
		matrix, err := buildMatrix()
		if err != nil {
			metrics.RecordError("build-matrix")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := report.WriteJSON(w, matrix); err != nil {
			logrus.WithError(err).Error("Failed to encode report.")
		}
	}))
	mux.HandleFunc("/", metrics.HandleWithMetrics(func(w http.ResponseWriter, r *http.Request) {
		matrix, err := buildMatrix()
		if err != nil {
			metrics.RecordError("build-matrix")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := report.WriteMatrixHTML(w, matrix, o.hoursBack); err != nil {
			logrus.WithError(err).Error("Failed to render report.")
		}
	}))

	server := &http.Server{Addr: ":" + strconv.Itoa(o.port), Handler: mux}
	logrus.Infof("Serving reports on http://localhost:%d", o.port)
	interrupts.ListenAndServe(server, o.gracePeriod)
	interrupts.WaitForGracefulShutdown()
}

func main() {
	logrusutil.ComponentInit()
	o, err := gatherOptions()
	if err != nil {
		logrus.WithError(err).Fatal("failed to gather options")
	}
	if err := o.validate(); err != nil {
		logrus.WithError(err).Fatal("invalid options")
	}
	level, _ := logrus.ParseLevel(o.logLevel)
	logrus.SetLevel(level)

	if o.cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logrus.WithError(err).Fatal("could not determine the user cache directory, pass --cache-dir")
		}
		o.cacheDir = filepath.Join(base, "prow-job-monitor")
	}

	cache := jobhistory.NewCache(afero.NewOsFs(), o.cacheDir, o.cacheMaxAge)
	if o.clearCache {
		logrus.Infof("Cleared %d cache entries", cache.ClearAll())
	}
	history := jobhistory.NewClient(cache)
	builder := failures.NewMatrixBuilder(failures.NewAggregator(history)).WithMaxConcurrency(o.maxConcurrency)

	if o.serve {
		serveReports(o, builder)
		return
	}

	switch o.mode {
	case modePRs:
		err = runPRs(o)
	case modePeriodics:
		err = runPeriodics(o, builder)
	case modeCount:
		err = runCount(o, builder)
	case modeRefresh:
		err = runRefresh(o, cache, history)
	}
	if err != nil {
		logrus.WithError(err).Fatal("failed to build report")
	}
}
